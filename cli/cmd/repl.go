package cmd

import (
	"context"
	"io"

	"github.com/vrde/trabant/cli/cmd/repl"
	"github.com/vrde/trabant/log"
	"github.com/vrde/trabant/pkg"
)

// Repl starts an interactive session rendering template lines as they are
// entered.
type Repl struct {
	Vars `embed:""`
}

// Run executes the repl command. Source files, if any, are run before the
// first prompt.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	var src io.Reader

	if files := sourceFilesFrom(ctx); files != nil {
		if files.Stdin() != nil {
			return ErrRepl.Wrap(ErrStdinSource)
		}

		src = files
	}

	env, err := r.Env(ctx)
	if err != nil {
		return err
	}

	return repl.Run(ctx, templatesFrom(ctx).Renderer(), env, src, cacheDir(ctx), log.Default())
}

// cacheDir returns the cache directory configured for the command line, or
// the user's cache directory.
func cacheDir(ctx context.Context) string {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Model != nil {
		if dir := ktx.Model.Vars()[CacheIdentifier]; dir != "" {
			return dir
		}
	}

	return pkg.CacheDir()
}
