package repl

import (
	"maps"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr/builtin"
)

// exprParams names the parameters of the expression language's builtin
// functions. Functions missing here are described by reflection or not at
// all.
var exprParams = map[string][]string{
	"len":           {"v"},
	"all":           {"array", "predicate"},
	"any":           {"array", "predicate"},
	"one":           {"array", "predicate"},
	"none":          {"array", "predicate"},
	"map":           {"array", "mapper"},
	"filter":        {"array", "predicate"},
	"find":          {"array", "predicate"},
	"findIndex":     {"array", "predicate"},
	"findLast":      {"array", "predicate"},
	"findLastIndex": {"array", "predicate"},
	"groupBy":       {"array", "mapper"},
	"sortBy":        {"array", "mapper", "order"},
	"count":         {"array", "predicate"},
	"sum":           {"array"},
	"mean":          {"array"},
	"median":        {"array"},
	"min":           {"array"},
	"max":           {"array"},
	"join":          {"array", "separator"},
	"split":         {"string", "separator"},
	"replace":       {"string", "old", "new"},
	"trim":          {"string"},
	"trimPrefix":    {"string", "prefix"},
	"trimSuffix":    {"string", "suffix"},
	"hasPrefix":     {"string", "prefix"},
	"hasSuffix":     {"string", "suffix"},
	"indexOf":       {"string", "substring"},
	"upper":         {"string"},
	"lower":         {"string"},
	"repeat":        {"string", "n"},
	"int":           {"v"},
	"float":         {"v"},
	"string":        {"v"},
	"toJSON":        {"v"},
	"fromJSON":      {"string"},
	"keys":          {"map"},
	"values":        {"map"},
	"type":          {"v"},
}

// exprBuiltinNames returns the sorted names of the expression language's
// builtin functions.
func exprBuiltinNames() []string {
	return slices.Sorted(maps.Keys(builtin.Index))
}

// functionCall represents a detected function call in the input.
type functionCall struct {
	name     string // fully qualified function name (e.g., "path.join")
	argIndex int    // current argument index (0-based)
	inCall   bool   // true if cursor is inside parameter list
}

// detectFunctionCall analyzes the input to determine if the cursor is inside
// a function call's parameter list. It returns the function name, current
// argument index, and whether we're inside a call.
func detectFunctionCall(input string, cursor int) functionCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	open := -1
	depth := 0

	for i := cursor; i > 0 && open < 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				open = i
			}

			depth--
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if r != '.' && r != '_' && !isIdentRune(r) {
			break
		}

		start -= size
	}

	name := strings.Trim(input[start:open], ".")
	if name == "" {
		return functionCall{}
	}

	call := functionCall{name: name, inCall: true}
	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				call.argIndex++
			}
		}
	}

	return call
}

func isIdentRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// signature returns the parameters of the named function and whether it is
// known. Functions defined by earlier input are preferred over session
// variables, builtins and the expression language's functions, in that
// order.
func (m model) signature(name string) ([]string, bool) {
	if params, ok := m.session.Params(name); ok {
		return params, true
	}

	src := m.source()

	if v, ok := src.resolve(name); ok {
		return reflectParams(v)
	}

	if params, ok := exprParams[name]; ok {
		return params, true
	}

	return nil, false
}

// reflectParams describes the parameters of a Go function value by type.
func reflectParams(v any) ([]string, bool) {
	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Func {
		return nil, false
	}

	params := make([]string, t.NumIn())

	for i := range params {
		if t.IsVariadic() && i == len(params)-1 {
			params[i] = "..." + typeName(t.In(i).Elem())
		} else {
			params[i] = typeName(t.In(i))
		}
	}

	return params, true
}

// typeName converts a reflect.Type to a readable parameter name.
func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Func:
		return "func"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map:
		return "map"
	case reflect.Pointer:
		return typeName(t.Elem())
	default:
		if t.Name() != "" {
			return t.Name()
		}

		return "arg"
	}
}

// renderSignatureHint renders "name(params)" with the parameter at argIdx
// highlighted. A variadic last parameter stays highlighted for every
// argument past it.
func renderSignatureHint(name string, params []string, argIdx int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(name))
	b.WriteString(signatureStyle.Render("("))

	for i, param := range params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		current := argIdx == i ||
			(strings.HasPrefix(param, "...") && argIdx >= i)

		if current {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
