package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps each session as JSON under "<prefix>rt:<digest>" with a
// TTL matching the session, where digest hashes the refresh token. The set
// "<prefix>authority:<authority>" lists the digests an authority holds so all
// of its sessions can be revoked at once.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "docbase:session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) tokenKey(d string) string {
	return r.prefix + "rt:" + d
}

func (r *RedisRepository) authorityKey(authority string) string {
	return r.prefix + "authority:" + authority
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	stored := *s
	stored.RefreshToken = ""
	b, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	exp := time.Until(s.ExpiresAt)
	if exp <= 0 {
		// keep Redis from storing an already expired session forever
		exp = time.Second
	}
	d := digest(s.RefreshToken)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(d), b, exp)
		pipe.SAdd(ctx, r.authorityKey(s.Authority), d)
		// the index lives as long as the newest session
		pipe.Expire(ctx, r.authorityKey(s.Authority), exp)
		return nil
	})
	return err
}

func (r *RedisRepository) load(ctx context.Context, d string) (*Session, error) {
	b, err := r.client.Get(ctx, r.tokenKey(d)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisRepository) remove(ctx context.Context, d, authority string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.tokenKey(d))
		pipe.SRem(ctx, r.authorityKey(authority), d)
		return nil
	})
	return err
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	d := digest(refresh)
	s, err := r.load(ctx, d)
	if err != nil || s == nil {
		return nil, err
	}
	if time.Now().UTC().After(s.ExpiresAt) {
		_ = r.remove(ctx, d, s.Authority)
		return nil, nil
	}
	s.RefreshToken = refresh
	return s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	d := digest(refresh)
	s, err := r.load(ctx, d)
	if err != nil || s == nil {
		return err
	}
	return r.remove(ctx, d, s.Authority)
}

func (r *RedisRepository) DeleteByAuthority(ctx context.Context, authority string) (int, error) {
	digests, err := r.client.SMembers(ctx, r.authorityKey(authority)).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(digests))
	for _, d := range digests {
		keys = append(keys, r.tokenKey(d))
	}
	var deleted *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			deleted = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, r.authorityKey(authority))
		return nil
	})
	if err != nil || deleted == nil {
		return 0, err
	}
	return int(deleted.Val()), nil
}
