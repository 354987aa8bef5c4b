package service

import (
	"context"
	"errors"
	"sync"

	"github.com/gogotex/docbase/internal/collection"
	"github.com/gogotex/docbase/internal/document"
	"github.com/gogotex/docbase/internal/document/repository"
	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/pkg/logger"
	"github.com/gogotex/docbase/pkg/metrics"
)

// operation names used in logs and metrics
const (
	OpCreateCollection = "create_collection"
	OpCreateDocument   = "create_document"
	OpUpdateDocument   = "update_document"
	OpDeleteDocument   = "delete_document"
)

// Service defines the record operations used by the handler layer. Every
// mutating call checks its preconditions before touching a record and either
// applies all of its effects or none.
type Service interface {
	CreateCollection(ctx context.Context, signer, addr identity.Key) (*collection.Collection, error)
	CreateDocument(ctx context.Context, signer, addr, coll identity.Key, text string) (*document.Document, error)
	UpdateDocument(ctx context.Context, signer, addr, coll identity.Key, text string) (*document.Document, error)
	DeleteDocument(ctx context.Context, signer, addr, coll identity.Key) (*collection.Collection, error)
	GetCollection(ctx context.Context, addr identity.Key) (*collection.Collection, error)
	GetDocument(ctx context.Context, addr identity.Key) (*document.Document, error)
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return New(repository.NewMemoryRepo())
}

// New returns a Service over repo.
func New(repo *repository.Repo) Service {
	return &recordService{repo: repo}
}

// recordService runs one operation at a time; the record store only sees
// serialized transactions from this process.
type recordService struct {
	mu   sync.Mutex
	repo *repository.Repo
}

func (s *recordService) CreateCollection(ctx context.Context, signer, addr identity.Key) (*collection.Collection, error) {
	var out *collection.Collection
	err := s.run(ctx, OpCreateCollection, func(tx *repository.Tx) error {
		if signer.IsZero() {
			return fault.ErrMissingSigner
		}
		c := collection.New(signer)
		if err := tx.CreateCollection(addr, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("create collection %s authority=%s", addr, signer)
	return out, nil
}

func (s *recordService) CreateDocument(ctx context.Context, signer, addr, coll identity.Key, text string) (*document.Document, error) {
	var out *document.Document
	err := s.run(ctx, OpCreateDocument, func(tx *repository.Tx) error {
		if signer.IsZero() {
			return fault.ErrMissingSigner
		}
		c, err := tx.Collection(coll)
		if err != nil {
			return err
		}
		d, err := document.New(signer, coll, text)
		if err != nil {
			return err
		}
		if err := c.Increment(); err != nil {
			return err
		}
		if err := tx.CreateDocument(addr, d); err != nil {
			return err
		}
		if err := tx.PutCollection(coll, c); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("create document %s collection=%s authority=%s", addr, coll, signer)
	return out, nil
}

func (s *recordService) UpdateDocument(ctx context.Context, signer, addr, coll identity.Key, text string) (*document.Document, error) {
	var out *document.Document
	err := s.run(ctx, OpUpdateDocument, func(tx *repository.Tx) error {
		d, err := ownedDocument(tx, signer, addr, coll)
		if err != nil {
			return err
		}
		if err := d.Update(text); err != nil {
			return err
		}
		if err := tx.PutDocument(addr, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("update document %s", addr)
	return out, nil
}

func (s *recordService) DeleteDocument(ctx context.Context, signer, addr, coll identity.Key) (*collection.Collection, error) {
	var out *collection.Collection
	err := s.run(ctx, OpDeleteDocument, func(tx *repository.Tx) error {
		if _, err := ownedDocument(tx, signer, addr, coll); err != nil {
			return err
		}
		c, err := tx.Collection(coll)
		if err != nil {
			return err
		}
		if err := c.Decrement(); err != nil {
			return err
		}
		if err := tx.DeleteDocument(addr); err != nil {
			return err
		}
		if err := tx.PutCollection(coll, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("delete document %s collection=%s count=%d", addr, coll, out.Count)
	return out, nil
}

func (s *recordService) GetCollection(ctx context.Context, addr identity.Key) (*collection.Collection, error) {
	return s.repo.Collection(ctx, addr)
}

func (s *recordService) GetDocument(ctx context.Context, addr identity.Key) (*document.Document, error) {
	return s.repo.Document(ctx, addr)
}

// ownedDocument applies the guards shared by update and delete: a signer, an
// existing document it controls, an existing collection, and that collection
// being the one the document was created under.
func ownedDocument(tx *repository.Tx, signer, addr, coll identity.Key) (*document.Document, error) {
	if signer.IsZero() {
		return nil, fault.ErrMissingSigner
	}
	d, err := tx.Document(addr)
	if err != nil {
		return nil, err
	}
	if d.Authority != signer {
		return nil, fault.ErrNotAuthority
	}
	if _, err := tx.Collection(coll); err != nil {
		return nil, err
	}
	if d.Collection != coll {
		return nil, fault.ErrCollectionMismatch
	}
	return d, nil
}

func (s *recordService) run(ctx context.Context, op string, fn func(tx *repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.repo.Update(ctx, fn)
	metrics.Operations.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		logger.Warnf("%s rejected: %v", op, err)
	}
	return err
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case fault.IsErrAuthorization(err):
		return "unauthorized"
	case fault.IsErrAllocation(err):
		return "exists"
	case fault.IsErrNotFound(err):
		return "not_found"
	case fault.IsErrInvalid(err):
		return "invalid"
	case fault.IsErrRange(err):
		return "out_of_range"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	}
	return "error"
}
