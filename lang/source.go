package lang

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is the character encoding assumed for template source and
// byte-slice values when no other encoding is configured or declared.
const DefaultEncoding = "utf-8"

// codingLines is the number of leading lines searched for an encoding
// declaration.
const codingLines = 2

// codingPattern matches an encoding declaration in a directive comment, e.g.
//
//	%# -*- coding: latin-1 -*-
var codingPattern = regexp.MustCompile(`%.*coding[:=]\s*([-\w.]+)`)

// errInvalidUTF8 reports UTF-8 source holding bytes that do not decode.
var errInvalidUTF8 = NewError("invalid UTF-8")

// sourceLine is one physical line of decoded template source.
type sourceLine struct {
	Text   string // Including the line terminator, if any
	Number int    // 1-based
}

// decodeLines splits src into lines and decodes each one. Lines are decoded
// with enc until an encoding declaration on one of the first two lines
// switches the decoder for the remaining lines. The returned encoding is the
// one in effect at the end of the source.
func decodeLines(name string, src []byte, enc string) ([]sourceLine, string, error) {
	dec, err := lookupEncoding(enc)
	if err != nil {
		return nil, "", ErrCompile.At(name, 0).Wrap(ErrDecode.Wrap(err))
	}

	lines := make([]sourceLine, 0, bytes.Count(src, []byte{'\n'})+1)

	for number := 1; len(src) > 0; number++ {
		raw := src
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			raw = src[:i+1]
		}

		src = src[len(raw):]

		text, err := decodeBytes(dec, raw)
		if err != nil {
			return nil, "", ErrCompile.At(name, number).Wrap(
				ErrDecode.Wrap(err).With(slog.String("encoding", enc)),
			)
		}

		if number <= codingLines {
			if m := codingPattern.FindStringSubmatch(text); m != nil {
				dec, err = lookupEncoding(m[1])
				if err != nil {
					return nil, "", ErrCompile.At(name, number).Wrap(
						ErrDecode.Wrap(err).With(slog.String("encoding", m[1])),
					)
				}

				enc = m[1]
				text = strings.ReplaceAll(text, "coding", "coding (removed)")
			}
		}

		lines = append(lines, sourceLine{Text: text, Number: number})
	}

	return lines, enc, nil
}

// lookupEncoding resolves an encoding name using WHATWG labels first, then
// IANA names, then both again with separators removed ("latin-1" → "latin1").
func lookupEncoding(name string) (encoding.Encoding, error) {
	candidates := []string{name}
	if squashed := strings.NewReplacer("-", "", "_", "").Replace(name); squashed != name {
		candidates = append(candidates, squashed)
	}

	var first error

	for _, label := range candidates {
		if e, err := htmlindex.Get(label); err == nil {
			return e, nil
		} else if first == nil {
			first = err
		}

		if e, err := ianaindex.IANA.Encoding(label); err == nil && e != nil {
			return e, nil
		}
	}

	return nil, first
}

// isUTF8 reports whether e is the UTF-8 encoding, for which decoding is a
// no-op.
func isUTF8(e encoding.Encoding) bool {
	return e == unicode.UTF8
}

func decodeBytes(e encoding.Encoding, b []byte) (string, error) {
	if isUTF8(e) {
		if !utf8.Valid(b) {
			return "", errInvalidUTF8
		}

		return string(b), nil
	}

	out, err := e.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
