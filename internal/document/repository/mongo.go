package repository

import (
	"context"
	"fmt"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRecord is the stored form of a record. _id is the base58 address;
// authority and parent are duplicated out of the layout for operators.
type mongoRecord struct {
	ID        string `bson:"_id"`
	Kind      string `bson:"kind"`
	Authority string `bson:"authority"`
	Data      []byte `bson:"data"`
	Parent    string `bson:"parent,omitempty"`
}

// mongoBackend keeps all records in one collection and commits each operation
// in a multi-document transaction (requires a replica set). Reads are checked
// again inside the transaction; write conflicts abort it.
type mongoBackend struct {
	col *mongo.Collection
}

// NewMongoRepo returns a Repo backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoRepo(col *mongo.Collection) *Repo {
	// parent lookups are how an operator audits a collection's documents
	idxModel := mongo.IndexModel{Keys: bson.D{{Key: "parent", Value: 1}}, Options: options.Index().SetSparse(true)}
	col.Indexes().CreateOne(context.Background(), idxModel)
	return &Repo{name: "mongo", b: &mongoBackend{col: col}}
}

func (m *mongoBackend) close() error { return nil }

func (m *mongoBackend) load(ctx context.Context, addr identity.Key) (*Record, error) {
	var mr mongoRecord
	err := m.col.FindOne(ctx, bson.M{"_id": addr.String()}).Decode(&mr)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	var parent []byte
	if mr.Parent != "" {
		p, err := identity.Parse(mr.Parent)
		if err != nil {
			return nil, fault.ErrInvalidLayout
		}
		parent = p[:]
	}
	return decodeRecord(addr, mr.Data, parent)
}

func toMongo(rec *Record) (*mongoRecord, error) {
	data, err := rec.encode()
	if err != nil {
		return nil, err
	}
	mr := &mongoRecord{ID: rec.Address.String(), Kind: rec.Kind.String(), Data: data}
	switch rec.Kind {
	case KindCollection:
		mr.Authority = rec.Collection.Authority.String()
	case KindDocument:
		mr.Authority = rec.Document.Authority.String()
		mr.Parent = rec.Document.Collection.String()
	}
	return mr, nil
}

func (m *mongoBackend) commit(ctx context.Context, reads []read, changes []change) error {
	sess, err := m.col.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, rd := range reads {
			cur, err := m.load(sc, rd.addr)
			if err != nil {
				return nil, err
			}
			if !sameRecord(cur, rd.rec) {
				return nil, errStale
			}
		}
		for _, c := range changes {
			id := c.rec.Address.String()
			if c.op == opDelete {
				if _, err := m.col.DeleteOne(sc, bson.M{"_id": id}); err != nil {
					return nil, err
				}
				continue
			}
			mr, err := toMongo(c.rec)
			if err != nil {
				return nil, err
			}
			if c.op == opCreate {
				if _, err := m.col.InsertOne(sc, mr); err != nil {
					if mongo.IsDuplicateKeyError(err) {
						return nil, fault.ErrRecordExists
					}
					return nil, err
				}
				continue
			}
			opts := options.Replace().SetUpsert(true)
			if _, err := m.col.ReplaceOne(sc, bson.M{"_id": id}, mr, opts); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
