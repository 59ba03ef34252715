package lang

import (
	"iter"
	"strings"
)

// Inline expression delimiters.
const (
	exprOpen  = "{{"
	exprClose = "}}"
	rawMarker = "!"
)

// TokenKind identifies the fragments of a literal text line.
type TokenKind int

const (
	TokenText    TokenKind = iota // literal text
	TokenRaw                      // {{!expr}}, inserted unescaped
	TokenEscaped                  // {{expr}}, inserted HTML-escaped
)

// String returns the name of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenRaw:
		return "raw"
	case TokenEscaped:
		return "escaped"
	default:
		return "unknown"
	}
}

// Token is one fragment of a literal text line. For expression tokens, Value
// is the expression source between the delimiters.
type Token struct {
	Kind  TokenKind
	Value string
}

// splitExpressions splits a text line into literal fragments and inline
// expressions, in order. Each span is the shortest text between an opening
// and the next closing delimiter; spans do not nest. Empty literal fragments
// are not produced.
func splitExpressions(line string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		rest := line

		for rest != "" {
			open := strings.Index(rest, exprOpen)
			if open < 0 {
				break
			}

			size := strings.Index(rest[open+len(exprOpen):], exprClose)
			if size < 0 {
				break
			}

			if open > 0 && !yield(Token{Kind: TokenText, Value: rest[:open]}) {
				return
			}

			inner := rest[open+len(exprOpen) : open+len(exprOpen)+size]
			rest = rest[open+len(exprOpen)+size+len(exprClose):]

			tok := Token{Kind: TokenEscaped, Value: inner}
			if raw, ok := strings.CutPrefix(inner, rawMarker); ok {
				tok = Token{Kind: TokenRaw, Value: raw}
			}

			if !yield(tok) {
				return
			}
		}

		if rest != "" {
			yield(Token{Kind: TokenText, Value: rest})
		}
	}
}
