package repl

import (
	"slices"
	"strings"
	"testing"

	"github.com/vrde/trabant/lang"
)

func TestDetectFunctionCall(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		cursor     int
		wantName   string
		wantIndex  int
		wantInCall bool
	}{
		{"no function call", "greeting", 8, "", 0, false},
		{"first arg", "add(", 4, "add", 0, true},
		{"first arg with value", "add(1", 5, "add", 0, true},
		{"second arg", "add(1,", 6, "add", 1, true},
		{"namespace function", "path.join(", 10, "path.join", 0, true},
		{"namespace function third arg", "path.join('/a', '/b',", 21, "path.join", 2, true},
		{"inline expression", "Hi {{upper(na", 13, "upper", 0, true},
		{"nested parens", "add(mul(2, 3),", 14, "add", 1, true},
		{"cursor inside nested call", "add(mul(2, 3), 4)", 8, "mul", 0, true},
		{"list argument", "join([1, 2], ", 13, "join", 1, true},
		{"closed call", "add(1, 2) + ", 12, "", 0, false},
		{"bare paren", "(1 + ", 5, "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFunctionCall(tt.input, tt.cursor)

			if got.name != tt.wantName || got.argIndex != tt.wantIndex || got.inCall != tt.wantInCall {
				t.Errorf("detectFunctionCall(%q, %d) = %+v, want {%s %d %v}",
					tt.input, tt.cursor, got, tt.wantName, tt.wantIndex, tt.wantInCall)
			}
		})
	}
}

func TestModelSignature(t *testing.T) {
	s := testSession(t, lang.Env{
		"shout": func(s string, n int) string { return strings.Repeat(s, n) },
	})

	feed(t, s, "%def greet(who, greeting='Hi'):", "{{greeting}} {{who}}", "%end")

	m := model{session: s}

	tests := []struct {
		name string
		want []string
	}{
		{"greet", []string{"who", "greeting='Hi'"}},
		{"shout", []string{"string", "int"}},
		{"path.join", []string{"...string"}},
		{"path.base", []string{"string"}},
		{"split", []string{"string", "separator"}},
	}

	for _, tt := range tests {
		got, ok := m.signature(tt.name)
		if !ok || !slices.Equal(got, tt.want) {
			t.Errorf("signature(%q) = %v, %v, want %v", tt.name, got, ok, tt.want)
		}
	}

	for _, name := range []string{"missing", "path", "platform"} {
		if _, ok := m.signature(name); ok {
			t.Errorf("signature(%q) found", name)
		}
	}
}

func TestExprBuiltinNames(t *testing.T) {
	names := exprBuiltinNames()

	if !slices.IsSorted(names) {
		t.Error("names not sorted")
	}

	for _, name := range []string{"len", "filter", "upper"} {
		if !slices.Contains(names, name) {
			t.Errorf("missing %q", name)
		}
	}
}

func TestRenderSignatureHint(t *testing.T) {
	tests := []struct {
		name   string
		params []string
		arg    int
	}{
		{"greeting", nil, 0},
		{"add", []string{"x", "y"}, 1},
		{"concat", []string{"...parts"}, 3},
	}

	for _, tt := range tests {
		got := renderSignatureHint(tt.name, tt.params, tt.arg)

		if !strings.Contains(got, tt.name) {
			t.Errorf("hint %q missing name %q", got, tt.name)
		}

		for _, p := range tt.params {
			if !strings.Contains(got, p) {
				t.Errorf("hint %q missing parameter %q", got, p)
			}
		}
	}
}
