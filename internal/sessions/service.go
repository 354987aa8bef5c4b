package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// CreateSession stores a new refresh session for authority and returns the refresh token
func (s *Service) CreateSession(ctx context.Context, authority string, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	r := hex.EncodeToString(b)
	sess := &Session{
		RefreshToken: r,
		Authority:    authority,
		ExpiresAt:    time.Now().UTC().Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return r, nil
}

// ValidateRefresh returns the session if refresh token is valid and not expired
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

// Rotate replaces a valid refresh token with a new one for the same authority.
// It returns a nil session when refresh is unknown or expired.
func (s *Service) Rotate(ctx context.Context, refresh string, ttl time.Duration) (*Session, string, error) {
	sess, err := s.ValidateRefresh(ctx, refresh)
	if err != nil || sess == nil {
		return nil, "", err
	}
	if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
		return nil, "", err
	}
	next, err := s.CreateSession(ctx, sess.Authority, ttl)
	if err != nil {
		return nil, "", err
	}
	return sess, next, nil
}

// RevokeAuthority ends every session held by authority.
func (s *Service) RevokeAuthority(ctx context.Context, authority string) (int, error) {
	return s.repo.DeleteByAuthority(ctx, authority)
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}
