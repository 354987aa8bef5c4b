// Package content converts document text to and from the fixed-size buffer
// stored on a document record.
package content

import (
	"bytes"

	"github.com/gogotex/docbase/internal/fault"
)

// Size is the capacity of a document content buffer in bytes.
const Size = 32

// Buffer is the encoded content of a document.
type Buffer [Size]byte

// Encode copies the raw bytes of text into a zero-padded buffer. Text longer
// than Size bytes is rejected before anything is copied.
func Encode(text string) (Buffer, error) {
	var b Buffer
	if len(text) > Size {
		return b, fault.ErrContentTooLarge
	}
	copy(b[:], text)
	return b, nil
}

// Decode returns the buffer as text with trailing zero bytes removed.
func Decode(b Buffer) string {
	return string(bytes.TrimRight(b[:], "\x00"))
}

// String implements fmt.Stringer using Decode.
func (b Buffer) String() string {
	return Decode(b)
}
