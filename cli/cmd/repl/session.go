package repl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/vrde/trabant/lang"
	"github.com/vrde/trabant/log"
)

// sessionName labels templates compiled from interactive input.
const sessionName = "repl"

// defPattern matches the header of a generated function definition.
var defPattern = regexp.MustCompile(`^def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*:`)

// Session evaluates template source one input at a time. Variables assigned
// and functions defined by earlier input stay bound for later input.
type Session struct {
	renderer *lang.Renderer
	vars     lang.Env
	initial  lang.Env
	defs     map[string][]string // parameters of template-defined functions
	pending  []string
	source   strings.Builder // every executed input, in order
	logger   log.Logger
}

// NewSession returns a session that resolves includes through r and starts
// with vars bound.
func NewSession(r *lang.Renderer, vars lang.Env, logger log.Logger) *Session {
	s := &Session{
		renderer: r,
		initial:  maps.Clone(vars),
		logger:   logger,
	}
	s.Reset()

	return s
}

// Reset discards pending input, definitions and every variable not given to
// [NewSession].
func (s *Session) Reset() {
	s.vars = maps.Clone(s.initial)
	if s.vars == nil {
		s.vars = make(lang.Env)
	}

	s.defs = make(map[string][]string)
	s.pending = nil
	s.source.Reset()
}

// Pending reports whether earlier lines are waiting for a block or a line
// continuation to be closed.
func (s *Session) Pending() bool { return len(s.pending) > 0 }

// Vars returns the variables currently bound.
func (s *Session) Vars() lang.Env { return maps.Clone(s.vars) }

// Names returns the sorted names of the bound variables.
func (s *Session) Names() []string { return slices.Sorted(maps.Keys(s.vars)) }

// Source returns the template source of every input executed since the last
// [Session.Reset].
func (s *Session) Source() string { return s.source.String() }

// Params returns the parameters of a function defined by earlier input.
func (s *Session) Params(name string) ([]string, bool) {
	params, ok := s.defs[name]

	return params, ok
}

// Eval adds one line of template source. If the source so far leaves a block
// or a line continuation open, the line is held and more is true. Otherwise
// the held lines and this one are executed together.
func (s *Session) Eval(ctx context.Context, line string) (out string, more bool, err error) {
	s.pending = append(s.pending, line)
	src := strings.Join(s.pending, "\n") + "\n"

	tpl, err := s.Compile(ctx, src)
	if err != nil {
		if incomplete(err, line) {
			return "", true, nil
		}

		s.pending = nil

		return "", false, err
	}

	s.pending = nil

	out, err = s.execute(ctx, src, tpl)

	return out, false, err
}

// Run compiles and executes complete template source, discarding any held
// lines.
func (s *Session) Run(ctx context.Context, src string) (string, error) {
	s.pending = nil

	tpl, err := s.Compile(ctx, src)
	if err != nil {
		return "", err
	}

	return s.execute(ctx, src, tpl)
}

// RunReader runs the template source read from r.
func (s *Session) RunReader(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	return s.Run(ctx, string(data))
}

// Compile compiles src with the renderer's options, bound to the renderer.
func (s *Session) Compile(ctx context.Context, src string) (*lang.Template, error) {
	opts := append(slices.Clone(s.renderer.Options), lang.WithRenderer(s.renderer))

	return lang.ParseString(ctx, sessionName, src, opts...)
}

func (s *Session) execute(ctx context.Context, src string, tpl *lang.Template) (string, error) {
	var out lang.Buffer

	env, err := tpl.Execute(ctx, &out, s.vars, s.renderer.Constants)
	if err != nil {
		return out.String(), err
	}

	s.vars = lang.Locals(env)

	s.source.WriteString(src)
	if !strings.HasSuffix(src, "\n") {
		s.source.WriteByte('\n')
	}

	for _, line := range tpl.Code().Lines {
		if m := defPattern.FindStringSubmatch(line.Text); m != nil && line.Depth == 0 {
			s.defs[m[1]] = splitParams(m[2])
		}
	}

	for name := range s.defs {
		if _, ok := s.vars[name]; !ok {
			delete(s.defs, name)
		}
	}

	s.logger.TraceContext(ctx, "session executed",
		slog.Int("fragments", out.Len()),
		slog.Int("vars", len(s.vars)),
	)

	return out.String(), nil
}

// incomplete reports whether err only means that more input is needed after
// line: a block is still open, or line continues onto the next one.
func incomplete(err error, line string) bool {
	if errors.Is(err, lang.ErrUnterminatedBlock) {
		return true
	}

	return errors.Is(err, lang.ErrUnterminatedContinuation) &&
		strings.HasSuffix(strings.TrimRight(line, " \t"), `\`)
}

func splitParams(list string) []string {
	var params []string

	for p := range strings.SplitSeq(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}

	return params
}
