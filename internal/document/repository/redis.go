package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/redis/go-redis/v9"
)

// redisBackend stores the record layout under "<prefix>rec:<address>" and the
// parent of a document under "<prefix>parent:<address>". A commit WATCHes the
// keys of every address the transaction read, checks them against what was
// read and applies the writes inside MULTI/EXEC.
type redisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisRepo returns a Repo on client. Prefix may be empty.
func NewRedisRepo(client *redis.Client, prefix string) *Repo {
	if prefix == "" {
		prefix = "docbase:"
	}
	return &Repo{name: "redis", b: &redisBackend{client: client, prefix: prefix}}
}

func (r *redisBackend) recKey(addr identity.Key) string {
	return r.prefix + "rec:" + addr.String()
}

func (r *redisBackend) parentKey(addr identity.Key) string {
	return r.prefix + "parent:" + addr.String()
}

func (r *redisBackend) close() error {
	return r.client.Close()
}

func (r *redisBackend) load(ctx context.Context, addr identity.Key) (*Record, error) {
	return r.loadWith(ctx, r.client, addr)
}

// mgetter is satisfied by *redis.Client and a watched *redis.Tx.
type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func (r *redisBackend) loadWith(ctx context.Context, c mgetter, addr identity.Key) (*Record, error) {
	vals, err := c.MGet(ctx, r.recKey(addr), r.parentKey(addr)).Result()
	if err != nil {
		return nil, err
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, nil
	}
	parent, _ := vals[1].(string)
	return decodeRecord(addr, []byte(data), []byte(parent))
}

func (r *redisBackend) commit(ctx context.Context, reads []read, changes []change) error {
	keys := make([]string, 0, 2*len(reads)+len(changes))
	for _, rd := range reads {
		keys = append(keys, r.recKey(rd.addr), r.parentKey(rd.addr))
	}
	for _, c := range changes {
		keys = append(keys, r.recKey(c.rec.Address))
	}

	apply := func(tx *redis.Tx) error {
		for _, rd := range reads {
			cur, err := r.loadWith(ctx, tx, rd.addr)
			if err != nil {
				return err
			}
			if !sameRecord(cur, rd.rec) {
				return errStale
			}
		}
		for _, c := range changes {
			if c.op != opCreate {
				continue
			}
			n, err := tx.Exists(ctx, r.recKey(c.rec.Address)).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return fault.ErrRecordExists
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range changes {
				addr := c.rec.Address
				if c.op == opDelete {
					pipe.Del(ctx, r.recKey(addr), r.parentKey(addr))
					continue
				}
				data, err := c.rec.encode()
				if err != nil {
					return err
				}
				pipe.Set(ctx, r.recKey(addr), data, 0)
				if c.rec.Document != nil {
					pipe.Set(ctx, r.parentKey(addr), c.rec.Document.Collection.Bytes(), 0)
				}
			}
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, apply, keys...)
	switch {
	case err == nil, errors.Is(err, errStale), fault.IsErrAllocation(err):
		return err
	case errors.Is(err, redis.TxFailedErr):
		// a watched key changed between the checks and EXEC
		return errStale
	}
	return fmt.Errorf("redis commit: %w", err)
}
