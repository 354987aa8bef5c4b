package repository

import (
	"context"

	"github.com/gogotex/docbase/internal/collection"
	"github.com/gogotex/docbase/internal/document"
	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
)

// entry tracks one address touched by a transaction.
type entry struct {
	orig  *Record // as loaded, nil when the address was empty
	cur   *Record // staged state, nil when absent
	dirty bool
}

// Tx stages reads and writes for one operation. Records returned by Tx are
// private copies: mutate them and hand them back with a Put to stage the write.
type Tx struct {
	ctx     context.Context
	b       backend
	entries map[identity.Key]*entry
	order   []identity.Key
}

func (tx *Tx) lookup(addr identity.Key) (*entry, error) {
	if e, ok := tx.entries[addr]; ok {
		return e, nil
	}
	rec, err := tx.b.load(tx.ctx, addr)
	if err != nil {
		return nil, err
	}
	e := &entry{orig: rec}
	if rec != nil {
		e.cur = rec.clone()
	}
	tx.entries[addr] = e
	tx.order = append(tx.order, addr)
	return e, nil
}

// Collection returns the staged collection at addr.
func (tx *Tx) Collection(addr identity.Key) (*collection.Collection, error) {
	e, err := tx.lookup(addr)
	if err != nil {
		return nil, err
	}
	return asCollection(e.cur)
}

// Document returns the staged document at addr.
func (tx *Tx) Document(addr identity.Key) (*document.Document, error) {
	e, err := tx.lookup(addr)
	if err != nil {
		return nil, err
	}
	return asDocument(e.cur)
}

// CreateCollection stages a new collection at an empty address.
func (tx *Tx) CreateCollection(addr identity.Key, c *collection.Collection) error {
	return tx.create(&Record{Address: addr, Kind: KindCollection, Collection: c})
}

// PutCollection stages an update to an existing collection.
func (tx *Tx) PutCollection(addr identity.Key, c *collection.Collection) error {
	e, err := tx.lookup(addr)
	if err != nil {
		return err
	}
	if _, err := asCollection(e.cur); err != nil {
		return err
	}
	e.cur = &Record{Address: addr, Kind: KindCollection, Collection: c}
	e.dirty = true
	return nil
}

// CreateDocument stages a new document at an empty address.
func (tx *Tx) CreateDocument(addr identity.Key, d *document.Document) error {
	return tx.create(&Record{Address: addr, Kind: KindDocument, Document: d})
}

// PutDocument stages an update to an existing document.
func (tx *Tx) PutDocument(addr identity.Key, d *document.Document) error {
	e, err := tx.lookup(addr)
	if err != nil {
		return err
	}
	if _, err := asDocument(e.cur); err != nil {
		return err
	}
	e.cur = &Record{Address: addr, Kind: KindDocument, Document: d}
	e.dirty = true
	return nil
}

// DeleteDocument stages the destruction of an existing document.
func (tx *Tx) DeleteDocument(addr identity.Key) error {
	e, err := tx.lookup(addr)
	if err != nil {
		return err
	}
	if _, err := asDocument(e.cur); err != nil {
		return err
	}
	e.cur = nil
	e.dirty = true
	return nil
}

func (tx *Tx) create(rec *Record) error {
	e, err := tx.lookup(rec.Address)
	if err != nil {
		return err
	}
	// an address freed earlier in the same transaction is not reusable
	if e.cur != nil || e.orig != nil {
		return fault.ErrRecordExists
	}
	e.cur = rec
	e.dirty = true
	return nil
}

// changes lists staged writes in the order their addresses were first touched.
func (tx *Tx) changes() []change {
	var out []change
	for _, addr := range tx.order {
		e := tx.entries[addr]
		if !e.dirty {
			continue
		}
		switch {
		case e.cur == nil && e.orig == nil:
			// created and destroyed within the same transaction
		case e.cur == nil:
			out = append(out, change{op: opDelete, rec: e.orig})
		case e.orig == nil:
			out = append(out, change{op: opCreate, rec: e.cur})
		default:
			out = append(out, change{op: opPut, rec: e.cur})
		}
	}
	return out
}

// reads lists the state of every address the transaction looked at.
func (tx *Tx) reads() []read {
	out := make([]read, 0, len(tx.order))
	for _, addr := range tx.order {
		out = append(out, read{addr: addr, rec: tx.entries[addr].orig})
	}
	return out
}
