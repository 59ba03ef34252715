package lang

import (
	"io"
	"slices"
	"strings"
)

// Buffer is the output sink of a template execution: an ordered list of
// string fragments. Its zero value is empty and ready to use.
type Buffer struct {
	parts []string
}

// Append adds fragments to the end of the buffer.
func (b *Buffer) Append(parts ...string) {
	b.parts = append(b.parts, parts...)
}

// Snapshot returns a copy of the fragments written so far.
func (b *Buffer) Snapshot() []string {
	return slices.Clone(b.parts)
}

// Reset discards all fragments.
func (b *Buffer) Reset() {
	b.parts = b.parts[:0]
}

// Len returns the number of fragments.
func (b *Buffer) Len() int {
	return len(b.parts)
}

// String returns the concatenated fragments.
func (b *Buffer) String() string {
	return strings.Join(b.parts, "")
}

// WriteTo writes the concatenated fragments to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for _, p := range b.parts {
		n, err := io.WriteString(w, p)
		total += int64(n)

		if err != nil {
			return total, err
		}
	}

	return total, nil
}
