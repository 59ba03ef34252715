package lang

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCompileProperties checks properties that hold for any template source.
func TestCompileProperties(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	properties := gopter.NewProperties(nil)

	// Property: compiling the same source twice yields identical code
	properties.Property("deterministic compilation", prop.ForAll(
		func(lines []string) bool {
			src := strings.Join(lines, "\n")

			a, errA := ParseString(ctx, "p", src)
			b, errB := ParseString(ctx, "p", src)

			if errA != nil || errB != nil {
				return (errA == nil) == (errB == nil) && errA.Error() == errB.Error()
			}

			return a.Code().Equal(b.Code())
		},
		gen.SliceOf(gen.OneConstOf(
			"", "plain text", "  indented", "a {{b}} c", "{{!raw}}", "{{ x + 1 }}",
			"%if a:", "%elif b:", "%else:", "%end", "%end if",
			"%for x in xs:", "%while n:", "%try:", "%except:",
			"%x = 1", "%# comment", "%% literal", "%include part",
			"%if a and \\", "line \\\\",
		)),
	))

	// Property: text without markup renders unchanged
	properties.Property("literal passthrough", prop.ForAll(
		func(src string) bool {
			tpl, err := ParseString(ctx, "p", src)
			if err != nil {
				return false
			}

			out, err := tpl.Render(ctx)

			return err == nil && out == src
		},
		gen.RegexMatch(`^[a-zA-Z0-9 .,;:!?"'<>&\t\n-]*$`),
	))

	// Property: escaped substitution never emits raw markup
	properties.Property("escaped substitution", prop.ForAll(
		func(value string) bool {
			tpl, err := ParseString(ctx, "p", "{{v}}")
			if err != nil {
				return false
			}

			out, err := tpl.Render(ctx, Env{"v": value})

			return err == nil && !strings.ContainsAny(out, `<>"'`)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
