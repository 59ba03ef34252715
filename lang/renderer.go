package lang

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Renderer resolves template names to templates and renders them.
//
// A name resolves to the file Path/name, with Ext appended when set. When
// Module is set, the file is looked up there first, falling back to the
// operating system's filesystem.
type Renderer struct {
	Path      string
	Ext       string
	Constants Env   // bound over the caller's variables by Render
	Module    fs.FS // packaged templates, consulted before Path
	Options   []Option
}

// file returns the file name a template name resolves to.
func (r *Renderer) file(name string) string {
	if ext := strings.TrimPrefix(r.Ext, "."); ext != "" {
		return name + "." + ext
	}

	return name
}

// Lookup reads and compiles the named template. The template resolves its
// includes and rebases through r. Lookup does not cache.
func (r *Renderer) Lookup(ctx context.Context, name string) (*Template, error) {
	file := r.file(name)

	src, err := r.read(file)
	if err != nil {
		return nil, ErrResolve.At(name, 0).Wrap(err).With(
			slog.String("path", r.Path),
			slog.String("file", file),
		)
	}

	opts := make([]Option, 0, len(r.Options)+1)
	opts = append(opts, r.Options...)
	opts = append(opts, WithRenderer(r))

	return ParseBytes(ctx, name, src, opts...)
}

func (r *Renderer) read(file string) ([]byte, error) {
	if r.Module != nil {
		name := path.Join(filepath.ToSlash(r.Path), file)
		if fs.ValidPath(name) {
			src, err := fs.ReadFile(r.Module, name)
			if err == nil {
				return src, nil
			}

			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	return os.ReadFile(filepath.Join(r.Path, filepath.FromSlash(file)))
}

// Render looks up the named template and renders it. Constants override the
// caller's variables.
func (r *Renderer) Render(ctx context.Context, name string, vars ...Env) (string, error) {
	t, err := r.Lookup(ctx, name)
	if err != nil {
		return "", err
	}

	return t.Render(ctx, r.vars(vars)...)
}

// RenderSource compiles template source bound to r and renders it.
// Constants override the caller's variables.
func (r *Renderer) RenderSource(
	ctx context.Context,
	name, source string,
	vars ...Env,
) (string, error) {
	opts := make([]Option, 0, len(r.Options)+1)
	opts = append(opts, r.Options...)
	opts = append(opts, WithRenderer(r))

	t, err := ParseString(ctx, name, source, opts...)
	if err != nil {
		return "", err
	}

	return t.Render(ctx, r.vars(vars)...)
}

func (r *Renderer) vars(vars []Env) []Env {
	if len(r.Constants) == 0 {
		return vars
	}

	return append(vars[:len(vars):len(vars)], r.Constants)
}
