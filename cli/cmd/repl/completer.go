package repl

import (
	"maps"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/expr-lang/expr/builtin"
	"github.com/sahilm/fuzzy"

	"github.com/vrde/trabant/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "vars", "edit", "reset", "clear", "quit"}

// isWordBoundary returns true if the rune is a word delimiter for completion
// purposes: whitespace, the member-access dot, expression operators and
// punctuation, and the template markers around inline expressions.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';',
		'"', '\'':
		return true
	}

	return false
}

// wordBounds returns the current word at the cursor position and its byte
// boundaries within input.
// Returns an empty word when the cursor sits on a boundary (after a space,
// between dots, start of line, etc.).
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the dot-separated prefix path leading up to the current
// word, considering only the contiguous member-access chain. For input
// "{{x + page.meta.ti" with the word "ti", the parent path is "page.meta".
// Returns "" for top-level words.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")
	end := len(prefix)
	pos := end

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return prefix[pos:end]
}

// candidateSource resolves completion candidates against the variables of a
// session and the builtin environment.
type candidateSource struct {
	vars lang.Env
}

// children returns the names that complete a member of parent. For an empty
// parent these are the session variables, the builtins and the expression
// functions.
func (c candidateSource) children(parent string) []string {
	if parent == "" {
		names := slices.Collect(maps.Keys(c.vars))
		names = append(names, lang.BuiltinNames()...)
		names = append(names, exprBuiltinNames()...)

		slices.Sort(names)

		return slices.Compact(names)
	}

	if v, ok := c.resolve(parent); ok {
		return memberNames(v)
	}

	return nil
}

// resolve returns the value at the dot-separated path, looking in the
// session variables before the builtins.
func (c candidateSource) resolve(path string) (any, bool) {
	head, rest, _ := strings.Cut(path, ".")

	v, ok := c.vars[head]
	if !ok {
		return lang.Builtin(path)
	}

	for seg := range strings.SplitSeq(rest, ".") {
		if seg == "" {
			continue
		}

		m, isMap := v.(map[string]any)
		if !isMap {
			return nil, false
		}

		if v, ok = m[seg]; !ok {
			return nil, false
		}
	}

	return v, true
}

// isFunction reports whether name completes to something callable.
func (c candidateSource) isFunction(name string) bool {
	if _, ok := c.vars[name]; !ok {
		if _, ok := builtin.Index[name]; ok {
			return true
		}
	}

	v, ok := c.resolve(name)

	return ok && reflect.TypeOf(v) != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// memberNames returns the sorted keys of a map value.
func memberNames(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	return slices.Sorted(maps.Keys(m))
}

// computeMatches ranks the candidates for the word at the cursor, best
// first, and returns them with the word's byte bounds. An empty word has no
// matches, except after a member-access dot where every member matches.
func (m model) computeMatches() (fuzzy.Matches, int, int) {
	input := m.input.Value()
	word, start, end := wordBounds(input, m.input.Position())

	var candidates []string

	switch {
	case m.mode == modeCtrl:
		if word != "" {
			candidates = ctrlCommands
		}

	case word == "":
		parent := parentPath(input, start)
		if parent == "" {
			return nil, start, end
		}

		var all fuzzy.Matches
		for i, name := range m.source().children(parent) {
			all = append(all, fuzzy.Match{Str: name, Index: i})
		}

		return all, start, end

	default:
		candidates = m.source().children(parentPath(input, start))
	}

	if len(candidates) == 0 {
		return nil, start, end
	}

	return fuzzy.Find(word, candidates), start, end
}

// renderCandidateBar lays the matches out on one line no wider than width,
// ending in an ellipsis when they do not all fit. The selected candidate is
// highlighted only while cycling.
func renderCandidateBar(
	matches fuzzy.Matches,
	selected int,
	cycling bool,
	width int,
	isFunc func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	ellipsis := hintStyle.Render("...")
	parts := make([]string, 0, len(matches))
	used := 0

	for i, match := range matches {
		s := renderCandidate(match, cycling && i == selected, isFunc)
		w := lipgloss.Width(s)

		if i > 0 {
			w += len(sep)

			if used+w+lipgloss.Width(ellipsis) > width {
				return strings.Join(parts, sep) + sep + ellipsis
			}
		}

		parts = append(parts, s)
		used += w
	}

	return strings.Join(parts, sep)
}

// renderCandidate styles one candidate, marking the characters the typed
// word matched. Functions get a "()" suffix.
func renderCandidate(match fuzzy.Match, selected bool, isFunc func(string) bool) string {
	plain, marked := suggestionStyle, matchStyle
	if selected {
		plain, marked = selectedStyle, selectedMatchStyle
	}

	var b strings.Builder

	for i, r := range match.Str {
		style := plain
		if slices.Contains(match.MatchedIndexes, i) {
			style = marked
		}

		b.WriteString(style.Render(string(r)))
	}

	if isFunc != nil && isFunc(match.Str) {
		b.WriteString(plain.Render("()"))
	}

	return b.String()
}
