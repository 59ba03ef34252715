package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format writes the generated code as text, indenting each block level by
// indent spaces. With indent 0 the default two-space unit is used.
func (c *Code) Format(_ context.Context, w io.Writer, indent int) error {
	unit := indentUnit
	if indent > 0 {
		unit = strings.Repeat(" ", indent)
	}

	for _, line := range c.Lines {
		if _, err := fmt.Fprintln(w, strings.Repeat(unit, line.Depth)+line.Text); err != nil {
			return err
		}
	}

	return nil
}

// FormatJSON writes the compiled form as JSON.
func (c *Code) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(c, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(c)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the compiled form as YAML, in flow style when indent is
// 0.
func (c *Code) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, c, opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}
