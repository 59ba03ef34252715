package lang

import (
	"errors"
	"testing"
	"unicode/utf8"
)

// FuzzParse compiles random template source. Compilation must either succeed
// deterministically or fail with a compile error.
func FuzzParse(f *testing.F) {
	f.Add("plain\n")
	f.Add("Hello {{name}}!\n")
	f.Add("{{!raw}} and {{escaped}}")
	f.Add("%if x:\nA\n%else:\nB\n%end\n")
	f.Add("%for k, v in m:\n{{k}}={{v}}\n%end\n")
	f.Add("%include header title=\"x\"\n%rebase layout\n")
	f.Add("%% literal\n%# comment\n")
	f.Add("%if a and \\\n%b:\n%end\n")
	f.Add("a\\\\\nb\n")
	f.Add("%def f(a, b=1):\n%return a + b\n%end\n")
	f.Add("%try:\n%raise \"x\"\n%except as e:\n%end\n")

	f.Fuzz(func(t *testing.T, src string) {
		if !utf8.ValidString(src) {
			t.Skip("invalid UTF-8")
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("parse panicked on input %q: %v", src, r)
			}
		}()

		a, err := ParseString(t.Context(), "fuzz", src)
		if err != nil {
			if !errors.Is(err, ErrCompile) {
				t.Errorf("error %v is not ErrCompile", err)
			}

			return
		}

		b, err := ParseString(t.Context(), "fuzz", src)
		if err != nil {
			t.Fatalf("second parse failed: %v", err)
		}

		if !a.Code().Equal(b.Code()) {
			t.Errorf("non-deterministic compilation of %q", src)
		}
	})
}
