package sessions

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"
)

// NonceStore issues single-use login challenges.
type NonceStore interface {
	// Issue returns a fresh nonce valid for ttl.
	Issue(ctx context.Context, ttl time.Duration) (string, error)
	// Consume reports whether nonce was outstanding and removes it.
	Consume(ctx context.Context, nonce string) (bool, error)
}

func newNonce() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// RedisNonceStore keeps nonces as expiring Redis keys.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

func NewRedisNonceStore(client *redis.Client, prefix string) *RedisNonceStore {
	if prefix == "" {
		prefix = "docbase:nonce:"
	}
	return &RedisNonceStore{client: client, prefix: prefix}
}

func (s *RedisNonceStore) Issue(ctx context.Context, ttl time.Duration) (string, error) {
	n, err := newNonce()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.prefix+n, "1", ttl).Err(); err != nil {
		return "", err
	}
	return n, nil
}

func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	// DEL reports how many keys it removed, so only one caller wins.
	removed, err := s.client.Del(ctx, s.prefix+nonce).Result()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

// MemoryNonceStore keeps nonces in process.
type MemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
	now    func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{nonces: map[string]time.Time{}, now: time.Now}
}

func (s *MemoryNonceStore) Issue(ctx context.Context, ttl time.Duration) (string, error) {
	n, err := newNonce()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.nonces {
		if now.After(exp) {
			delete(s.nonces, k)
		}
	}
	s.nonces[n] = now.Add(ttl)
	return n, nil
}

func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(s.nonces, nonce)
	return !s.now().After(exp), nil
}
