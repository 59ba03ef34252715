package lang

import (
	"io"
	"strings"
)

// indentUnit is the indentation written per block depth by [Code.String].
const indentUnit = "  "

// Code is the compiled form of a template: the generated statement lines
// produced by translation. It is immutable once translation completes.
type Code struct {
	Name     string `json:"name"     yaml:"name"`
	Encoding string `json:"encoding" yaml:"encoding"`
	Lines    []Line `json:"lines"    yaml:"lines"`
}

// Line is one generated statement.
type Line struct {
	Depth int    `json:"depth" yaml:"depth"`
	Text  string `json:"text"  yaml:"text"`
	Pos   int    `json:"pos"   yaml:"pos"` // source line
}

// String returns the generated code, one statement per line, indented by
// block depth.
func (c *Code) String() string {
	var b strings.Builder

	_, _ = c.WriteTo(&b)

	return b.String()
}

// WriteTo writes the generated code to w.
func (c *Code) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for _, line := range c.Lines {
		n, err := io.WriteString(
			w,
			strings.Repeat(indentUnit, line.Depth)+line.Text+"\n",
		)
		total += int64(n)

		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// Equal reports whether c and o contain the same generated code.
func (c *Code) Equal(o *Code) bool {
	if c == nil || o == nil {
		return c == o
	}

	if c.Name != o.Name || c.Encoding != o.Encoding || len(c.Lines) != len(o.Lines) {
		return false
	}

	for i := range c.Lines {
		if c.Lines[i] != o.Lines[i] {
			return false
		}
	}

	return true
}
