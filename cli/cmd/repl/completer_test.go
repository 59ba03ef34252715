package repl

import (
	"slices"
	"strings"
	"testing"

	"github.com/sahilm/fuzzy"

	"github.com/vrde/trabant/lang"
)

func TestWordBounds(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"simple", "foo", 3, "foo", 0, 3},
		{"dot_separated", "bar.baz", 7, "baz", 4, 7},
		{"after_plus", "a + fo", 6, "fo", 4, 6},
		{"after_paren", "double(fo", 9, "fo", 7, 9},
		{"after_comma", "add(a, fo", 9, "fo", 7, 9},
		{"in_ternary", "x ? fo", 6, "fo", 4, 6},
		{"empty_at_boundary", "a + ", 4, "", 4, 4},
		{"mid_word", "foobar", 3, "foobar", 0, 6},
		{"at_start", "foo", 0, "foo", 0, 3},
		{"between_operators", "a+b", 2, "b", 2, 3},
		{"inline_expression", "Hi {{na", 7, "na", 5, 7},
		{"escaped_expression", "{{!pa", 5, "pa", 3, 5},
		{"directive", "% if us", 7, "us", 5, 7},
		{"after_quote", "path.join('a", 12, "a", 11, 12},
		{"empty_after_dot", "path.", 5, "", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParentPath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wordStart int
		want      string
	}{
		{"top_level", "fo", 0, ""},
		{"simple_chain", "bar.baz.", 8, "bar.baz"},
		{"after_operator", "foo + bar.baz.", 14, "bar.baz"},
		{"after_paren", "(bar.baz.", 9, "bar.baz"},
		{"no_chain", "a + ", 4, ""},
		{"deep_chain", "a.b.c.", 6, "a.b.c"},
		{"inline_expression", "{{page.meta.", 12, "page.meta"},
		{"word_after_space", "foo bar", 4, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parentPath(tt.input, tt.wordStart)
			if got != tt.want {
				t.Errorf("parentPath(%q, %d) = %q, want %q",
					tt.input, tt.wordStart, got, tt.want)
			}
		})
	}
}

func TestCandidateSourceChildren(t *testing.T) {
	src := candidateSource{vars: lang.Env{
		"page": map[string]any{"title": "T", "meta": map[string]any{"tags": nil}},
		"path": "shadowed",
	}}

	top := src.children("")

	for _, name := range []string{"page", "path", "env", "len", "upper"} {
		if !slices.Contains(top, name) {
			t.Errorf("top-level candidates missing %q", name)
		}
	}

	if !slices.IsSorted(top) || len(slices.Compact(slices.Clone(top))) != len(top) {
		t.Error("top-level candidates not sorted and unique")
	}

	if got := src.children("page"); !slices.Equal(got, []string{"meta", "title"}) {
		t.Errorf("children(page) = %v", got)
	}

	if got := src.children("page.meta"); !slices.Equal(got, []string{"tags"}) {
		t.Errorf("children(page.meta) = %v", got)
	}

	// A session variable hides the builtin namespace of the same name.
	if got := src.children("path"); got != nil {
		t.Errorf("children(path) = %v, want nil", got)
	}

	if got := src.children("mung"); !slices.Equal(got, []string{"prefix", "prefixif"}) {
		t.Errorf("children(mung) = %v", got)
	}

	if got := src.children("nothing"); got != nil {
		t.Errorf("children(nothing) = %v", got)
	}
}

func TestCandidateSourceIsFunction(t *testing.T) {
	src := candidateSource{vars: lang.Env{
		"f":     func() string { return "" },
		"upper": "shadowed",
		"n":     1,
	}}

	tests := map[string]bool{
		"f":         true,
		"n":         false,
		"upper":     false,
		"lower":     true,
		"path.join": true,
		"path":      false,
		"missing":   false,
	}

	for name, want := range tests {
		if got := src.isFunction(name); got != want {
			t.Errorf("isFunction(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRenderCandidateBar(t *testing.T) {
	matches := fuzzy.Find("pa", []string{"page", "path", "parts", "spare"})
	if len(matches) == 0 {
		t.Fatal("no matches")
	}

	if got := renderCandidateBar(nil, 0, false, 80, nil); got != "" {
		t.Errorf("empty bar = %q", got)
	}

	bar := renderCandidateBar(matches, 0, true, 200, nil)
	for _, m := range matches {
		for _, r := range m.Str {
			if !strings.ContainsRune(bar, r) {
				t.Errorf("bar %q missing %q", bar, r)
			}
		}
	}

	narrow := renderCandidateBar(matches, -1, false, 8, nil)
	if !strings.Contains(narrow, "...") {
		t.Errorf("narrow bar not ellipsized: %q", narrow)
	}

	fn := renderCandidate(fuzzy.Match{Str: "f"}, false, func(string) bool { return true })
	if !strings.Contains(fn, "()") {
		t.Errorf("function candidate = %q", fn)
	}
}
