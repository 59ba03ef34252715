package lang

import (
	"errors"
	"slices"
	"testing"
)

func TestCompileCodeStatements(t *testing.T) {
	t.Parallel()

	body, err := compileCode("test", []Line{
		{Depth: 0, Text: "a, b = 1, 2", Pos: 1},
		{Depth: 0, Text: "a += 2", Pos: 2},
		{Depth: 0, Text: "# comment", Pos: 3},
		{Depth: 0, Text: "if a > 1: b = 3; pass", Pos: 4},
		{Depth: 0, Text: "for (k, v) in m:", Pos: 5},
		{Depth: 1, Text: "continue", Pos: 6},
		{Depth: 1, Text: "#end(for)", Pos: 7},
		{Depth: 0, Text: "f(1, \\", Pos: 8},
		{Depth: 0, Text: "2)", Pos: 9},
	})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	if len(body) != 5 {
		t.Fatalf("got %d statements, want 5", len(body))
	}

	assign, ok := body[0].(*assignStmt)
	if !ok {
		t.Fatalf("statement 0 is %T, want *assignStmt", body[0])
	}

	if !slices.Equal(assign.targets, []string{"a", "b"}) || assign.value.src != "[1, 2]" {
		t.Errorf("assignment = %v %q", assign.targets, assign.value.src)
	}

	aug, ok := body[1].(*assignStmt)
	if !ok || aug.value.src != "a + (2)" {
		t.Errorf("augmented assignment = %#v", body[1])
	}

	cond, ok := body[2].(*ifStmt)
	if !ok {
		t.Fatalf("statement 2 is %T, want *ifStmt", body[2])
	}

	if len(cond.branches) != 1 || len(cond.branches[0].body) != 1 {
		t.Errorf("one-line if has %d branches", len(cond.branches))
	}

	loop, ok := body[3].(*forStmt)
	if !ok {
		t.Fatalf("statement 3 is %T, want *forStmt", body[3])
	}

	if !slices.Equal(loop.targets, []string{"k", "v"}) || len(loop.body) != 1 {
		t.Errorf("for targets %v body %d", loop.targets, len(loop.body))
	}

	call, ok := body[4].(*exprStmt)
	if !ok || call.value.src != "f(1, 2)" || call.at != 8 {
		t.Errorf("joined statement = %#v", body[4])
	}
}

func TestCompileCodeIndent(t *testing.T) {
	t.Parallel()

	_, err := compileCode("test", []Line{{Depth: 1, Text: "x", Pos: 3}})
	if !errors.Is(err, ErrIndent) {
		t.Fatalf("error = %v, want ErrIndent", err)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		detail *Error
		line   int
	}{
		{"break outside loop", "%break\n", ErrSyntax, 1},
		{"continue in def in loop", "%for x in y:\n%def f():\n%continue\n%end\n%end\n", ErrSyntax, 3},
		{"missing condition", "%if :\n%end\n", ErrSyntax, 1},
		{"try without handler", "%try:\nA\n%end\n", ErrSyntax, 1},
		{"default before required", "%def f(a=1, b):\n%end\n", ErrSyntax, 1},
		{"malformed for", "%for x of y:\n%end\n", ErrSyntax, 1},
		{"misplaced clause", "%while x:\n%elif y:\n%end\n", ErrSyntax, 2},
		{"invalid expression", "%x = \n", ErrExpression, 1},
		{"invalid inline expression", "{{ 1 + }}\n", ErrExpression, 1},
		{"dangling continuation", "a\n%x = 1 + \\\n", ErrUnterminatedContinuation, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseString(t.Context(), "test", tt.src)
			if err == nil {
				t.Fatal("expected error")
			}

			if !errors.Is(err, ErrCompile) || !errors.Is(err, tt.detail) {
				t.Errorf("error %v, want ErrCompile wrapping %v", err, tt.detail)
			}

			var e *Error
			if errors.As(err, &e) && e.Line() != tt.line {
				t.Errorf("error line %d, want %d", e.Line(), tt.line)
			}
		})
	}
}

func TestTopLevelColons(t *testing.T) {
	t.Parallel()

	got := topLevelColons(`if m["a:b"] and f(x[1:2]): y = {"k": 1}`)
	want := []int{25}

	if !slices.Equal(got, want) {
		t.Errorf("topLevelColons = %v, want %v", got, want)
	}
}

func TestExpressionNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want []string
	}{
		{"a + b.c + len(d)", []string{"a", "b", "d"}},
		{"let x = 1; x + y", []string{"y"}},
		{"map(xs, # * 2)", []string{"xs"}},
		{`"literal" + string(42)`, []string{}},
		{"f(g)", []string{"f", "g"}},
	}

	for _, tt := range tests {
		e, err := compileExpression(tt.src)
		if err != nil {
			t.Errorf("compileExpression(%q) error: %v", tt.src, err)

			continue
		}

		if !slices.Equal(e.names, tt.want) {
			t.Errorf("compileExpression(%q) names = %v, want %v", tt.src, e.names, tt.want)
		}
	}
}
