package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "docbase_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("STORE_BACKEND", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, "sqlite", cfg.Store.Backend)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, 2*time.Minute, cfg.JWT.ChallengeTTL)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("JWT_SECRET", "defaults-secret-0123456789abcdefghij")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, "", cfg.Redis.Addr())
	require.Equal(t, 10.0, cfg.RateLimit.RPS)
	require.False(t, cfg.RateLimit.Enabled)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadConfigRejectsIncompleteBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", "backend-secret-0123456789abcdefghij")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_HOST", "")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("STORE_BACKEND", "etcd")
	_, err = LoadConfig()
	require.Error(t, err)
}
