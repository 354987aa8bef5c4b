package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "authority-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, r)

	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "authority-1", sess.Authority)

	require.NoError(t, svc.DeleteRefresh(ctx, r))
	sess2, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess2)
}

func TestValidateRefreshDropsExpired(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &Session{
		RefreshToken: "old",
		Authority:    "a",
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}))

	sess, err := svc.ValidateRefresh(ctx, "old")
	require.NoError(t, err)
	require.Nil(t, sess)
	stored, err := repo.GetByRefresh(ctx, "old")
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestRotate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	first, err := svc.CreateSession(ctx, "authority-2", time.Hour)
	require.NoError(t, err)

	sess, next, err := svc.Rotate(ctx, first, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "authority-2", sess.Authority)
	require.NotEqual(t, first, next)

	// the old token is spent
	sess, _, err = svc.Rotate(ctx, first, time.Hour)
	require.NoError(t, err)
	require.Nil(t, sess)

	got, err := svc.ValidateRefresh(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "authority-2", got.Authority)
}

func TestRevokeAuthority(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	a1, err := svc.CreateSession(ctx, "authority-a", time.Hour)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "authority-a", time.Hour)
	require.NoError(t, err)
	b1, err := svc.CreateSession(ctx, "authority-b", time.Hour)
	require.NoError(t, err)

	n, err := svc.RevokeAuthority(ctx, "authority-a")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	sess, err := svc.ValidateRefresh(ctx, a1)
	require.NoError(t, err)
	require.Nil(t, sess)
	sess, err = svc.ValidateRefresh(ctx, b1)
	require.NoError(t, err)
	require.NotNil(t, sess)
}
