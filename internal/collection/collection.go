// Package collection holds the Collection record: a controlling authority and the
// number of live documents created against it.
package collection

import (
	"encoding/binary"
	"math"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/internal/layout"
)

// RecordSize is the stored length of a collection: discriminator, authority, count.
const RecordSize = layout.DiscriminatorSize + identity.KeySize + 8

// Discriminator prefixes every stored collection record.
var Discriminator = layout.Discriminator("Collection")

// Collection is a top-level record counting its documents.
type Collection struct {
	Authority identity.Key `json:"authority"`
	Count     uint64       `json:"count"`
}

// New returns an empty collection controlled by authority.
func New(authority identity.Key) *Collection {
	return &Collection{Authority: authority}
}

// Increment adds one live document.
func (c *Collection) Increment() error {
	if c.Count == math.MaxUint64 {
		return fault.ErrCounterOverflow
	}
	c.Count++
	return nil
}

// Decrement removes one live document.
func (c *Collection) Decrement() error {
	if c.Count == 0 {
		return fault.ErrCounterUnderflow
	}
	c.Count--
	return nil
}

// MarshalBinary encodes the fixed 48-byte record layout.
func (c *Collection) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordSize)
	copy(b[0:8], Discriminator[:])
	copy(b[8:40], c.Authority[:])
	binary.LittleEndian.PutUint64(b[40:48], c.Count)
	return b, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (c *Collection) UnmarshalBinary(b []byte) error {
	if len(b) != RecordSize {
		return fault.ErrInvalidLayout
	}
	if [8]byte(b[0:8]) != Discriminator {
		return fault.ErrWrongRecordKind
	}
	copy(c.Authority[:], b[8:40])
	c.Count = binary.LittleEndian.Uint64(b[40:48])
	return nil
}
