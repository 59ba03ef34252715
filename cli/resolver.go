package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config"

// resolve is a [kong.ConfigurationLoader] that reads a YAML mapping of flag
// names to values, as written by the init command.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve, "/path/to/config.yaml")
//
// Keys are flag names. Hyphens in a flag name may be written as underscores
// in the file (log_level for --log-level). Example config file:
//
//	log-level: debug
//	log_format: json
//	path: ./views
//	max-depth: 16
//	var:
//	  site: example.org
//
// Command-line flags override config file values. An empty file or one that
// does not hold a mapping configures nothing.
func resolve(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return config{}, nil
	}

	return config(kongValues(m).(map[string]any)), nil
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}

// kongValues converts decoded YAML numbers to strings, which kong parses
// like command-line arguments. Collections are converted element by
// element.
func kongValues(v any) any {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = kongValues(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = kongValues(e)
		}

		return out
	default:
		return v
	}
}
