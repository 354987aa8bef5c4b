package document

import (
	"github.com/gogotex/docbase/internal/content"
	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/internal/layout"
)

// RecordSize is the stored length of a document: discriminator, authority, content.
const RecordSize = layout.DiscriminatorSize + identity.KeySize + content.Size

// Discriminator prefixes every stored document record.
var Discriminator = layout.Discriminator("Document")

// Document is a record holding fixed-size content under its own authority.
// Collection is the parent recorded at creation; it is kept beside the record
// layout by the store rather than inside it.
type Document struct {
	Authority  identity.Key
	Content    content.Buffer
	Collection identity.Key
}

// New encodes text and returns a document owned by authority under parent.
func New(authority, parent identity.Key, text string) (*Document, error) {
	buf, err := content.Encode(text)
	if err != nil {
		return nil, err
	}
	return &Document{Authority: authority, Content: buf, Collection: parent}, nil
}

// Update replaces the content in place. The authority never changes.
func (d *Document) Update(text string) error {
	buf, err := content.Encode(text)
	if err != nil {
		return err
	}
	d.Content = buf
	return nil
}

// Text returns the decoded content.
func (d *Document) Text() string {
	return content.Decode(d.Content)
}

// MarshalBinary encodes the fixed 72-byte record layout.
func (d *Document) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordSize)
	copy(b[0:8], Discriminator[:])
	copy(b[8:40], d.Authority[:])
	copy(b[40:72], d.Content[:])
	return b, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary. The parent link
// is not part of the layout and is left untouched.
func (d *Document) UnmarshalBinary(b []byte) error {
	if len(b) != RecordSize {
		return fault.ErrInvalidLayout
	}
	if [8]byte(b[0:8]) != Discriminator {
		return fault.ErrWrongRecordKind
	}
	copy(d.Authority[:], b[8:40])
	copy(d.Content[:], b[40:72])
	return nil
}
