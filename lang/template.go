package lang

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/klauspost/readahead"
	"golang.org/x/text/encoding"
)

// Template is a compiled template. It is immutable and safe for concurrent
// use once built.
type Template struct {
	name string
	code *Code
	body []stmt
	opts options
	dec  encoding.Encoding
}

// ParseBytes compiles template source. The name identifies the template in
// errors and logs.
func ParseBytes(
	ctx context.Context,
	name string,
	src []byte,
	opts ...Option,
) (*Template, error) {
	t := &Template{name: name}

	applyDefaults(&t.opts)
	applyOptions(&t.opts, opts...)

	lines, enc, err := decodeLines(name, src, t.opts.encoding)
	if err != nil {
		return nil, err
	}

	if t.dec, err = lookupEncoding(enc); err != nil {
		return nil, ErrCompile.At(name, 0).Wrap(ErrDecode.Wrap(err))
	}

	t.opts.logger.TraceContext(ctx, "source decoded",
		slog.String("template", name),
		slog.String("encoding", enc),
		slog.Int("lines", len(lines)),
	)

	code, err := translate(name, lines, &t.opts)
	if err != nil {
		return nil, err
	}

	t.code = &Code{Name: name, Encoding: enc, Lines: code}

	t.opts.logger.TraceContext(ctx, "translated",
		slog.String("template", name),
		slog.Int("statements", len(code)),
	)

	if t.body, err = compileCode(name, code); err != nil {
		return nil, err
	}

	t.opts.logger.TraceContext(ctx, "compiled",
		slog.String("template", name),
		slog.Int("statements", len(t.body)),
	)

	return t, nil
}

// ParseString compiles template source held in a string.
func ParseString(
	ctx context.Context,
	name, src string,
	opts ...Option,
) (*Template, error) {
	return ParseBytes(ctx, name, []byte(src), opts...)
}

// ParseReader compiles template source read from r.
func ParseReader(
	ctx context.Context,
	name string,
	r io.Reader,
	opts ...Option,
) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	src, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrResolve.At(name, 0).Wrap(err)
	}

	return ParseBytes(ctx, name, src, opts...)
}

// ParseFile compiles the template stored in the named file. The file name
// is the template name.
func ParseFile(ctx context.Context, filename string, opts ...Option) (*Template, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, ErrResolve.At(filename, 0).Wrap(err)
	}

	return ParseBytes(ctx, filename, src, opts...)
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Encoding returns the encoding in effect for the template.
func (t *Template) Encoding() string { return t.code.Encoding }

// Code returns a copy of the compiled form.
func (t *Template) Code() *Code {
	c := *t.code
	c.Lines = slices.Clone(t.code.Lines)

	return &c
}

// Render executes the template and returns its output.
func (t *Template) Render(ctx context.Context, vars ...Env) (string, error) {
	var out Buffer

	if _, err := t.Execute(ctx, &out, vars...); err != nil {
		return "", err
	}

	return out.String(), nil
}

// Execute runs the template, appending its output to out, and returns the
// final variable environment. Variables are bound over the template defaults,
// each map in vars overriding the ones before it.
//
// If the template requests a rebase, out holds the output of the rebase
// target and the returned environment is the target's.
func (t *Template) Execute(ctx context.Context, out *Buffer, vars ...Env) (Env, error) {
	cache := t.opts.cache
	if cache == nil {
		cache = NewCache()
	}

	return t.execute(ctx, out, cache, 0, vars...)
}

func (t *Template) execute(
	ctx context.Context,
	out *Buffer,
	cache *Cache,
	depth int,
	vars ...Env,
) (Env, error) {
	if depth > t.opts.maxDepth {
		return nil, ErrRender.At(t.name, 0).Wrap(ErrMaxDepthExceeded.With(
			slog.Int("depth", depth),
		))
	}

	r := &run{
		ctx:   ctx,
		tpl:   t,
		cache: cache,
		depth: depth,
		input: mergeEnv(vars...),
	}

	env := builtins(t.opts.processEnv)
	maps.Copy(env, t.opts.defaults)
	r.bind(env, out)
	maps.Copy(env, r.input)

	t.opts.logger.TraceContext(ctx, "execute",
		slog.String("template", t.name),
		slog.Int("depth", depth),
		slog.Int("vars", len(r.input)),
	)

	if _, err := r.block(t.body, env); err != nil {
		return nil, err
	}

	if r.rebase == nil {
		return env, nil
	}

	target, err := r.lookup(r.rebase.name)
	if err != nil {
		return nil, err
	}

	base := out.Snapshot()
	out.Reset()

	t.opts.logger.TraceContext(ctx, "rebase",
		slog.String("template", t.name),
		slog.String("base", r.rebase.name),
		slog.Int("fragments", len(base)),
	)

	return target.execute(ctx, out, cache, depth+1, r.rebase.vars, Env{nameBase: base})
}

// str converts a value to output text.
func (t *Template) str(v any) string {
	return stringify(v, t.decode)
}

// esc converts a value to output text and escapes it.
func (t *Template) esc(v any) string {
	if t.opts.noEscape {
		return t.str(v)
	}

	return t.opts.escape(t.str(v))
}

func (t *Template) decode(b []byte) string {
	s, err := decodeBytes(t.dec, b)
	if err != nil {
		return string(b)
	}

	return s
}
