package repository

import (
	"context"
	"sync"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
)

// memoryBackend keeps records in a map. Used for unit tests and single-node
// development; data is lost on restart.
type memoryBackend struct {
	mu    sync.RWMutex
	store map[identity.Key]*Record
}

// NewMemoryRepo returns a Repo backed by process memory.
func NewMemoryRepo() *Repo {
	return &Repo{name: "memory", b: &memoryBackend{store: make(map[identity.Key]*Record)}}
}

func (m *memoryBackend) load(_ context.Context, addr identity.Key) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.store[addr]; ok {
		return r.clone(), nil
	}
	return nil, nil
}

func (m *memoryBackend) commit(_ context.Context, reads []read, changes []change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rd := range reads {
		if !sameRecord(m.store[rd.addr], rd.rec) {
			return errStale
		}
	}
	for _, c := range changes {
		if c.op != opCreate {
			continue
		}
		if _, ok := m.store[c.rec.Address]; ok {
			return fault.ErrRecordExists
		}
	}
	for _, c := range changes {
		switch c.op {
		case opCreate, opPut:
			m.store[c.rec.Address] = c.rec.clone()
		case opDelete:
			delete(m.store, c.rec.Address)
		}
	}
	return nil
}

func (m *memoryBackend) close() error { return nil }
