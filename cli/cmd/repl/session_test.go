package repl

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/vrde/trabant/lang"
	"github.com/vrde/trabant/log"
)

func testSession(t *testing.T, vars lang.Env) *Session {
	t.Helper()

	r := &lang.Renderer{
		Path: "views",
		Ext:  "tpl",
		Module: fstest.MapFS{
			"views/header.tpl": {Data: []byte("<h1>{{title}}</h1>\n")},
		},
	}

	return NewSession(r, vars, log.Logger{})
}

// feed evaluates each line in turn and returns the output of the last one.
func feed(t *testing.T, s *Session, lines ...string) (string, bool) {
	t.Helper()

	var (
		out  string
		more bool
		err  error
	)

	for _, line := range lines {
		out, more, err = s.Eval(t.Context(), line)
		if err != nil {
			t.Fatalf("Eval(%q) error: %v", line, err)
		}
	}

	return out, more
}

func TestSessionEval(t *testing.T) {
	t.Parallel()

	s := testSession(t, lang.Env{"name": "ann"})

	out, more := feed(t, s, "Hello {{name}}")
	if more || out != "Hello ann\n" {
		t.Errorf("Eval = (%q, %v)", out, more)
	}

	if out, _ := feed(t, s, "% x = 41"); out != "" {
		t.Errorf("assignment output = %q", out)
	}

	if out, _ := feed(t, s, "{{x + 1}}"); out != "42\n" {
		t.Errorf("variable did not persist: %q", out)
	}
}

func TestSessionEvalBlock(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)

	for _, line := range []string{"%for i in [1, 2]:", "- {{i}}"} {
		out, more, err := s.Eval(t.Context(), line)
		if err != nil || !more || out != "" {
			t.Fatalf("Eval(%q) = (%q, %v, %v), want held", line, out, more, err)
		}

		if !s.Pending() {
			t.Fatalf("Pending() = false after %q", line)
		}
	}

	out, more := feed(t, s, "%end")
	if more || out != "- 1\n- 2\n" {
		t.Errorf("Eval = (%q, %v)", out, more)
	}

	if s.Pending() {
		t.Error("Pending() = true after block closed")
	}
}

func TestSessionEvalContinuation(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)

	if _, more := feed(t, s, `% x = 1 + \`); !more {
		t.Fatal("continued line was not held")
	}

	if out, _ := feed(t, s, "% 2", "{{x}}"); out != "3\n" {
		t.Errorf("continued statement output = %q", out)
	}
}

func TestSessionDefs(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)

	feed(t, s, "%def add(a, b=1):", "%return a + b", "%end")

	params, ok := s.Params("add")
	if !ok || !slices.Equal(params, []string{"a", "b=1"}) {
		t.Errorf("Params(add) = %v, %v", params, ok)
	}

	if out, _ := feed(t, s, "{{add(2)}}"); out != "3\n" {
		t.Errorf("call output = %q", out)
	}

	if !slices.Contains(s.Names(), "add") {
		t.Errorf("Names() = %v", s.Names())
	}
}

func TestSessionErrors(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)

	_, more, err := s.Eval(t.Context(), "%else:")
	if !errors.Is(err, lang.ErrCompile) || more {
		t.Errorf("orphan clause = (%v, %v)", more, err)
	}

	if s.Pending() {
		t.Error("failed input is still held")
	}

	feed(t, s, `%if true and \`)

	_, more, err = s.Eval(t.Context(), "text")
	if !errors.Is(err, lang.ErrUnterminatedContinuation) || more {
		t.Errorf("text after continued directive = (%v, %v)", more, err)
	}

	if _, err := s.Run(t.Context(), "%include missing\n"); !errors.Is(err, lang.ErrResolve) {
		t.Errorf("missing include error = %v", err)
	}
}

func TestSessionInclude(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)

	out, err := s.Run(t.Context(), "%include header title=\"Hi\"\n")
	if err != nil || out != "<h1>Hi</h1>\n" {
		t.Errorf("Run = (%q, %v)", out, err)
	}
}

func TestSessionReset(t *testing.T) {
	t.Parallel()

	s := testSession(t, lang.Env{"name": "ann"})

	feed(t, s, "% x = 1", "%def f():", "%end")

	if src := s.Source(); !strings.Contains(src, "% x = 1\n") || !strings.Contains(src, "%def f():\n%end\n") {
		t.Errorf("Source() = %q", src)
	}

	s.Reset()

	if !slices.Equal(s.Names(), []string{"name"}) {
		t.Errorf("Names() after reset = %v", s.Names())
	}

	if _, ok := s.Params("f"); ok {
		t.Error("definition survived reset")
	}

	if s.Source() != "" {
		t.Errorf("Source() after reset = %q", s.Source())
	}
}

func TestSessionRunReader(t *testing.T) {
	t.Parallel()

	s := testSession(t, nil)

	out, err := s.RunReader(t.Context(), strings.NewReader("% n = 2\n{{n * 2}}\n"))
	if err != nil || out != "4\n" {
		t.Errorf("RunReader = (%q, %v)", out, err)
	}

	if v := s.Vars()["n"]; v == nil {
		t.Error("variable from reader not bound")
	}
}

func TestIncomplete(t *testing.T) {
	t.Parallel()

	block := lang.ErrCompile.Wrap(lang.ErrUnterminatedBlock)
	cont := lang.ErrCompile.Wrap(lang.ErrUnterminatedContinuation)

	tests := []struct {
		name string
		err  error
		line string
		want bool
	}{
		{"open block", block, "%if x:", true},
		{"continued line", cont, `% x = \`, true},
		{"continued line trailing space", cont, `% x = \  `, true},
		{"text after continuation", cont, "text", false},
		{"other error", lang.ErrCompile.Wrap(lang.ErrSyntax), `\`, false},
	}

	for _, tt := range tests {
		if got := incomplete(tt.err, tt.line); got != tt.want {
			t.Errorf("%s: incomplete = %v, want %v", tt.name, got, tt.want)
		}
	}
}
