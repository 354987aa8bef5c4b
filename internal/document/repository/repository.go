// Package repository is the record storage substrate: it allocates, stores and
// destroys collection and document records by address, and applies every
// operation's writes all-or-nothing.
package repository

import (
	"bytes"
	"context"
	"errors"

	"github.com/gogotex/docbase/internal/collection"
	"github.com/gogotex/docbase/internal/document"
	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/internal/layout"
	"github.com/gogotex/docbase/pkg/logger"
	"github.com/gogotex/docbase/pkg/metrics"
)

// Kind tells which record type lives at an address.
type Kind int

const (
	KindCollection Kind = iota + 1
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindCollection:
		return "collection"
	case KindDocument:
		return "document"
	}
	return "unknown"
}

// Size is the stored byte length of a record of this kind.
func (k Kind) Size() int {
	switch k {
	case KindCollection:
		return collection.RecordSize
	case KindDocument:
		return document.RecordSize
	}
	return 0
}

// Record is whatever is stored at an address. Exactly one of Collection and
// Document is set, matching Kind.
type Record struct {
	Address    identity.Key
	Kind       Kind
	Collection *collection.Collection
	Document   *document.Document
}

func (r *Record) clone() *Record {
	out := &Record{Address: r.Address, Kind: r.Kind}
	if r.Collection != nil {
		c := *r.Collection
		out.Collection = &c
	}
	if r.Document != nil {
		d := *r.Document
		out.Document = &d
	}
	return out
}

// encode returns the fixed layout bytes of the record.
func (r *Record) encode() ([]byte, error) {
	switch r.Kind {
	case KindCollection:
		return r.Collection.MarshalBinary()
	case KindDocument:
		return r.Document.MarshalBinary()
	}
	return nil, fault.ErrWrongRecordKind
}

// decodeRecord rebuilds a record from its layout bytes, telling the kind from
// the discriminator. parent is only used for documents.
func decodeRecord(addr identity.Key, data []byte, parent []byte) (*Record, error) {
	if len(data) < layout.DiscriminatorSize {
		return nil, fault.ErrInvalidLayout
	}
	switch {
	case bytes.Equal(data[:layout.DiscriminatorSize], collection.Discriminator[:]):
		c := &collection.Collection{}
		if err := c.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &Record{Address: addr, Kind: KindCollection, Collection: c}, nil
	case bytes.Equal(data[:layout.DiscriminatorSize], document.Discriminator[:]):
		d := &document.Document{}
		if err := d.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		if len(parent) > 0 {
			p, err := identity.FromBytes(parent)
			if err != nil {
				return nil, fault.ErrInvalidLayout
			}
			d.Collection = p
		}
		return &Record{Address: addr, Kind: KindDocument, Document: d}, nil
	}
	return nil, fault.ErrWrongRecordKind
}

// sameRecord reports whether two loaded records hold the same state. nil means
// an empty address.
func sameRecord(a, b *Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindCollection:
		return *a.Collection == *b.Collection
	case KindDocument:
		return *a.Document == *b.Document
	}
	return false
}

// ErrConflict is returned by Update when another writer kept changing the
// records an operation read, through every attempt.
var ErrConflict = errors.New("repository: concurrent update conflict")

// errStale is returned by a backend commit when a read no longer holds.
var errStale = errors.New("repository: stale read")

// attempts Update makes before giving up with ErrConflict
const updateAttempts = 5

type op int

const (
	opCreate op = iota + 1
	opPut
	opDelete
)

// change is one staged write handed to a backend at commit time.
type change struct {
	op  op
	rec *Record
}

// read is the state a transaction saw at an address; rec is nil when empty.
type read struct {
	addr identity.Key
	rec  *Record
}

// backend is a storage engine. load returns (nil, nil) for an empty address.
// commit must apply all changes or none. It fails with errStale when any read
// no longer matches the stored record, and fails a create whose address is
// already occupied with fault.ErrRecordExists.
type backend interface {
	load(ctx context.Context, addr identity.Key) (*Record, error)
	commit(ctx context.Context, reads []read, changes []change) error
	close() error
}

// Repo is the record store used by the operation handlers.
type Repo struct {
	name string
	b    backend
}

// Backend names the storage engine in use.
func (r *Repo) Backend() string { return r.name }

// Close releases the storage engine.
func (r *Repo) Close() error { return r.b.close() }

// Get fetches the record at addr.
func (r *Repo) Get(ctx context.Context, addr identity.Key) (*Record, error) {
	rec, err := r.b.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fault.ErrRecordNotFound
	}
	return rec, nil
}

// Collection fetches the collection at addr.
func (r *Repo) Collection(ctx context.Context, addr identity.Key) (*collection.Collection, error) {
	rec, err := r.b.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	return asCollection(rec)
}

// Document fetches the document at addr.
func (r *Repo) Document(ctx context.Context, addr identity.Key) (*document.Document, error) {
	rec, err := r.b.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	return asDocument(rec)
}

// Update runs fn against a fresh transaction and commits its writes if fn
// returns nil. Nothing is written when fn or the commit fails. When another
// writer changed a record fn read before the commit, fn is run again on fresh
// state; fn must therefore only act through tx.
func (r *Repo) Update(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 1; ; attempt++ {
		tx := &Tx{ctx: ctx, b: r.b, entries: map[identity.Key]*entry{}}
		if err := fn(tx); err != nil {
			return err
		}
		changes := tx.changes()
		if len(changes) == 0 {
			return nil
		}
		err := r.b.commit(ctx, tx.reads(), changes)
		if errors.Is(err, errStale) {
			if attempt < updateAttempts {
				logger.Debugf("%s commit conflict, attempt %d", r.name, attempt)
				continue
			}
			return ErrConflict
		}
		if err != nil {
			return err
		}
		recordBytes(changes)
		return nil
	}
}

func recordBytes(changes []change) {
	for _, c := range changes {
		size := float64(c.rec.Kind.Size())
		switch c.op {
		case opCreate:
			metrics.RecordBytes.WithLabelValues(c.rec.Kind.String()).Add(size)
		case opDelete:
			metrics.RecordBytes.WithLabelValues(c.rec.Kind.String()).Sub(size)
		}
	}
}

func asCollection(rec *Record) (*collection.Collection, error) {
	if rec == nil {
		return nil, fault.ErrCollectionNotFound
	}
	if rec.Kind != KindCollection {
		return nil, fault.ErrWrongRecordKind
	}
	return rec.Collection, nil
}

func asDocument(rec *Record) (*document.Document, error) {
	if rec == nil {
		return nil, fault.ErrDocumentNotFound
	}
	if rec.Kind != KindDocument {
		return nil, fault.ErrWrongRecordKind
	}
	return rec.Document, nil
}
