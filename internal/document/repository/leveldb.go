package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// key prefixes
var (
	levelRecordPrefix = []byte("r")
	levelParentPrefix = []byte("p")
)

// levelBackend stores the record layout under 'r'+address and the parent of a
// document under 'p'+address. A commit is a single write batch; the mutex
// makes the read checks and the batch one step.
type levelBackend struct {
	mu sync.Mutex
	db *leveldb.DB
}

// NewLevelDBRepo opens (creating if needed) a database directory at path.
func NewLevelDBRepo(path string) (*Repo, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb open: %w", err)
	}
	return &Repo{name: "leveldb", b: &levelBackend{db: db}}, nil
}

// NewLevelDBMemoryRepo returns a leveldb Repo on in-memory storage.
func NewLevelDBMemoryRepo() (*Repo, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb open: %w", err)
	}
	return &Repo{name: "leveldb", b: &levelBackend{db: db}}, nil
}

func levelKey(prefix []byte, addr identity.Key) []byte {
	return append(append([]byte{}, prefix...), addr[:]...)
}

func (l *levelBackend) close() error {
	return l.db.Close()
}

func (l *levelBackend) load(_ context.Context, addr identity.Key) (*Record, error) {
	data, err := l.db.Get(levelKey(levelRecordPrefix, addr), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	parent, err := l.db.Get(levelKey(levelParentPrefix, addr), nil)
	if err != nil && err != leveldb.ErrNotFound {
		return nil, err
	}
	return decodeRecord(addr, data, parent)
}

func (l *levelBackend) commit(ctx context.Context, reads []read, changes []change) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rd := range reads {
		cur, err := l.load(ctx, rd.addr)
		if err != nil {
			return err
		}
		if !sameRecord(cur, rd.rec) {
			return errStale
		}
	}

	batch := new(leveldb.Batch)
	for _, c := range changes {
		addr := c.rec.Address
		switch c.op {
		case opCreate:
			ok, err := l.db.Has(levelKey(levelRecordPrefix, addr), nil)
			if err != nil {
				return err
			}
			if ok {
				return fault.ErrRecordExists
			}
		case opDelete:
			batch.Delete(levelKey(levelRecordPrefix, addr))
			batch.Delete(levelKey(levelParentPrefix, addr))
			continue
		}
		data, err := c.rec.encode()
		if err != nil {
			return err
		}
		batch.Put(levelKey(levelRecordPrefix, addr), data)
		if c.rec.Document != nil {
			batch.Put(levelKey(levelParentPrefix, addr), c.rec.Document.Collection.Bytes())
		}
	}
	if err := l.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb write: %w", err)
	}
	return nil
}
