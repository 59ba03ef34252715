package lang

import (
	"slices"
	"testing"
)

func TestSplitExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want []Token
	}{
		{
			name: "plain",
			line: "hello\n",
			want: []Token{{TokenText, "hello\n"}},
		},
		{
			name: "mixed",
			line: "a {{b}} c {{!d}}\n",
			want: []Token{
				{TokenText, "a "},
				{TokenEscaped, "b"},
				{TokenText, " c "},
				{TokenRaw, "d"},
				{TokenText, "\n"},
			},
		},
		{
			name: "adjacent",
			line: "{{a}}{{b}}",
			want: []Token{{TokenEscaped, "a"}, {TokenEscaped, "b"}},
		},
		{
			name: "shortest span",
			line: "{{ {{x}} }}",
			want: []Token{{TokenEscaped, " {{x"}, {TokenText, " }}"}},
		},
		{
			name: "unclosed",
			line: "open {{ x",
			want: []Token{{TokenText, "open {{ x"}},
		},
		{
			name: "empty",
			line: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := slices.Collect(splitExpressions(tt.line))
			if !slices.Equal(got, tt.want) {
				t.Errorf("splitExpressions(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitExpressionsStop(t *testing.T) {
	t.Parallel()

	var got []Token

	for tok := range splitExpressions("a {{b}} c {{d}}") {
		got = append(got, tok)
		if len(got) == 2 {
			break
		}
	}

	want := []Token{{TokenText, "a "}, {TokenEscaped, "b"}}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenKindString(t *testing.T) {
	t.Parallel()

	for kind, want := range map[TokenKind]string{
		TokenText:     "text",
		TokenRaw:      "raw",
		TokenEscaped:  "escaped",
		TokenKind(42): "unknown",
	} {
		if got := kind.String(); got != want {
			t.Errorf("TokenKind(%d).String() = %q, want %q", int(kind), got, want)
		}
	}
}
