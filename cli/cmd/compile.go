package cmd

import (
	"context"
	"log/slog"
)

// Compile prints the compiled form of a template.
type Compile struct {
	Format string `default:"text" enum:"text,json,yaml" help:"Output format (${enum})" short:"F"`
	Indent int    `default:"2"                          help:"Indent width; 0 selects compact output" short:"i"`

	Name string `arg:"" help:"Template name, resolved against --path" name:"name"`
}

// Run executes the compile command.
func (c *Compile) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tpl, err := load(ctx, templatesFrom(ctx).Renderer(), c.Name)
	if err != nil {
		return err
	}

	code := tpl.Code()
	w := stdout(ctx)

	switch c.Format {
	case "json":
		if err = code.FormatJSON(ctx, w, c.Indent); err != nil {
			return ErrJSONMarshal.With(slog.String("template", c.Name)).Wrap(err)
		}

	case "yaml":
		if err = code.FormatYAML(ctx, w, c.Indent); err != nil {
			return ErrYAMLMarshal.With(slog.String("template", c.Name)).Wrap(err)
		}

	default:
		if err = code.Format(ctx, w, c.Indent); err != nil {
			return ErrWriteOutput.Wrap(err)
		}
	}

	return nil
}
