package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/vrde/trabant/lang"
	"github.com/vrde/trabant/log"
)

// Render renders a template to standard output or a file.
type Render struct {
	Vars `embed:""`

	Name   string `arg:"" help:"Template name, resolved against --path" name:"name"`
	Output string `       help:"Write output to this file instead of stdout" short:"o" type:"path"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env, err := r.Env(ctx)
	if err != nil {
		return err
	}

	tpl, err := load(ctx, templatesFrom(ctx).Renderer(), r.Name)
	if err != nil {
		return err
	}

	var out lang.Buffer

	if _, err = tpl.Execute(ctx, &out, env); err != nil {
		return err
	}

	log.DebugContext(ctx, "rendered",
		slog.String("template", r.Name),
		slog.Int("fragments", out.Len()),
	)

	return r.write(ctx, &out)
}

func (r *Render) write(ctx context.Context, out io.WriterTo) error {
	if r.Output == "" {
		if _, err := out.WriteTo(stdout(ctx)); err != nil {
			return ErrWriteOutput.Wrap(err)
		}

		return nil
	}

	file, err := os.Create(r.Output)
	if err != nil {
		return ErrWriteOutput.With(slog.String("file", r.Output)).Wrap(err)
	}

	_, err = out.WriteTo(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return ErrWriteOutput.With(slog.String("file", r.Output)).Wrap(err)
	}

	return nil
}
