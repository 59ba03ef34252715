package lang

import (
	"strings"
	"unicode"
)

// Marker characters of the template syntax.
const (
	directiveMarker = '%'
	commentMarker   = '#'
	continuation    = '\\'
)

// lineKind distinguishes literal text lines from directive lines.
type lineKind int

const (
	lineText lineKind = iota
	lineDirective
)

// classified is the result of classifying one source line.
type classified struct {
	kind lineKind
	// text is the literal line with a doubled leading marker unescaped
	// (text lines only).
	text string
	// body is everything following the directive marker, trimmed
	// (directive lines only).
	body string
	// code is body without its trailing comment, trimmed
	// (directive lines only).
	code string
}

// classifyLine determines whether line is a directive: after leading
// whitespace it begins with exactly one marker. A doubled marker at line start
// is an escape, and the line is literal text with the first "%%" replaced by
// "%".
func classifyLine(line string) classified {
	stripped := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(stripped, "%%"):
		return classified{
			kind: lineText,
			text: strings.Replace(line, "%%", "%", 1),
		}

	case strings.HasPrefix(stripped, "%"):
		_, after, _ := strings.Cut(line, string(directiveMarker))
		body := strings.TrimSpace(after)
		code, _ := splitComment(body)

		return classified{
			kind: lineDirective,
			body: body,
			code: strings.TrimSpace(code),
		}

	default:
		return classified{kind: lineText, text: line}
	}
}

// keyword returns the leading identifier of a directive's code, e.g. "if" for
// "if x > 1:".
func keyword(code string) string {
	end := strings.IndexFunc(code, func(r rune) bool {
		return r != '_' && !isASCIILetter(r) && !isASCIIDigit(r)
	})
	if end < 0 {
		return code
	}

	return code[:end]
}

// splitComment separates a directive body from its trailing comment. A
// comment starts at a marker outside any string literal and outside any
// bracket pair; inside brackets '#' is the closure argument of the expression
// language. When the body cannot be scanned as a complete statement (an
// unterminated string, unbalanced brackets or a trailing continuation), the
// body is split at the last marker instead.
func splitComment(body string) (code, comment string) {
	var (
		quote rune
		depth int
		esc   bool
	)

	for i, r := range body {
		switch {
		case esc:
			esc = false

		case quote != 0:
			switch r {
			case '\\':
				esc = quote != '`'
			case quote:
				quote = 0
			}

		case r == '"' || r == '\'' || r == '`':
			quote = r

		case r == '(' || r == '[' || r == '{':
			depth++

		case r == ')' || r == ']' || r == '}':
			depth--
			if depth < 0 {
				return naiveSplitComment(body)
			}

		case r == commentMarker && depth == 0:
			return body[:i], body[i:]
		}
	}

	trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
	if quote != 0 || depth != 0 || strings.HasSuffix(trimmed, string(continuation)) {
		return naiveSplitComment(body)
	}

	return body, ""
}

func naiveSplitComment(body string) (code, comment string) {
	i := strings.LastIndexByte(body, commentMarker)
	if i < 0 {
		return body, ""
	}

	return body[:i], body[i:]
}

func isASCIILetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
