package cmd

import (
	"context"
	"log/slog"
	"maps"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/vrde/trabant/lang"
)

// Vars holds the template variables given on the command line.
type Vars struct {
	Var  map[string]string `help:"Bind template variable KEY to the string VALUE" mapsep:"none" placeholder:"KEY=VALUE" short:"V"`
	Vars []string          `help:"Bind the variables of a YAML or JSON mapping file"            placeholder:"FILE"      type:"existingfile"`
}

// Env returns the variables of each file in order, later files overriding
// earlier ones, with the --var bindings over them.
func (v *Vars) Env(ctx context.Context) (lang.Env, error) {
	env := make(lang.Env, len(v.Var))

	for _, file := range v.Vars {
		vars, err := readVars(ctx, file)
		if err != nil {
			return nil, err
		}

		maps.Copy(env, vars)
	}

	for key, value := range v.Var {
		env[key] = value
	}

	return env, nil
}

// readVars decodes a YAML or JSON document holding a mapping. An empty
// document holds no variables.
func readVars(ctx context.Context, file string) (lang.Env, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, ErrReadVars.With(slog.String("file", file)).Wrap(err)
	}

	var doc any

	err = yaml.UnmarshalContext(ctx, data, &doc)
	if err != nil {
		return nil, ErrReadVars.With(slog.String("file", file)).Wrap(err)
	}

	switch doc := doc.(type) {
	case nil:
		return lang.Env{}, nil

	case map[string]any:
		return doc, nil

	default:
		return nil, ErrReadVars.With(slog.String("file", file)).Wrap(ErrVarsFormat)
	}
}
