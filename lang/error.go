package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Error classes. Every error returned by this package matches exactly one of
// these with [errors.Is].
var (
	ErrCompile = NewError("compile template")
	ErrResolve = NewError("resolve template")
	ErrRender  = NewError("render template")
)

// Error details, wrapped by one of the error classes.
var (
	ErrDecode                   = NewError("decode source")
	ErrUnterminatedBlock        = NewError("unterminated block")
	ErrUnterminatedContinuation = NewError("unterminated line continuation")
	ErrStrayEnd                 = NewError("end without open block")
	ErrOrphanClause             = NewError("clause without open block")
	ErrArguments                = NewError("malformed directive arguments")
	ErrSyntax                   = NewError("invalid statement")
	ErrIndent                   = NewError("unexpected indentation")
	ErrExpression               = NewError("invalid expression")
	ErrUndefined                = NewError("undefined name")
	ErrEvaluate                 = NewError("expression evaluation failed")
	ErrInvalidValueType         = NewError("invalid value type")
	ErrRaised                   = NewError("raised")
	ErrNoRenderer               = NewError("no renderer")
	ErrMaxDepthExceeded         = NewError("maximum include depth exceeded")
)

// Error represents an error with optional structured logging attributes and
// the template location it refers to.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	base  *Error // Sentinel this error derives from (for errors.Is)
	msg   string
	name  string      // Template name
	line  int         // 1-based source line, 0 if unknown
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message from the fields that are set:
	//
	//   <msg> (<key>=<value> ...) "<name>" line <line>: <err>
	var b strings.Builder

	b.WriteString(e.msg)

	if len(e.attrs) > 0 {
		b.WriteString(" (")

		for i, a := range e.attrs {
			if i > 0 {
				b.WriteByte(' ')
			}

			b.WriteString(a.Key)
			b.WriteByte('=')
			b.WriteString(strconv.Quote(a.Value.String()))
		}

		b.WriteByte(')')
	}

	if e.name != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(strconv.Quote(e.name))
	}

	if e.line > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}

		b.WriteString("line ")
		b.WriteString(strconv.Itoa(e.line))
	}

	if e.err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}

		b.WriteString(e.err.Error())
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e == t || (e.base != nil && e.base == t)
}

// Template returns the name of the template the error refers to.
func (e *Error) Template() string { return e.name }

// Line returns the 1-based source line the error refers to, or 0.
func (e *Error) Line() int { return e.line }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+4)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.name != "" {
		attrs = append(attrs, slog.String("template", e.name))
	}

	if e.line > 0 {
		attrs = append(attrs, slog.Int("line", e.line))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := e.derive()
	c.err = err

	return c
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := e.derive()
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return c
}

// At returns a copy of the error located at the given template and line.
func (e *Error) At(name string, line int) *Error {
	c := e.derive()
	c.name = name
	c.line = line

	return c
}

func (e *Error) derive() *Error {
	c := *e
	if e.base == nil {
		c.base = e
	}

	return &c
}

// isClassified reports whether err already carries one of the error classes.
func isClassified(err error) bool {
	return errors.Is(err, ErrCompile) ||
		errors.Is(err, ErrResolve) ||
		errors.Is(err, ErrRender)
}
