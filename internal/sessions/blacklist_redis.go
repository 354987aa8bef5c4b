package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// revoked access tokens live under "docbase:revoked:<digest>" until they expire
const blacklistPrefix = "docbase:revoked:"

// blacklistClient is shared by the logout handler and the auth middleware;
// nil disables revocation.
var blacklistClient *redis.Client

// SetBlacklistClient configures the Redis client used for revocation.
func SetBlacklistClient(c *redis.Client) {
	blacklistClient = c
}

func blacklistKey(token string) string {
	return blacklistPrefix + digest(token)
}

// BlacklistAccessToken revokes an access token until ttl, its remaining
// lifetime, runs out. Only the token digest is stored.
// If no Redis client is configured, this is a no-op and returns nil.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if blacklistClient == nil || ttl <= 0 {
		return nil
	}
	return blacklistClient.Set(ctx, blacklistKey(token), time.Now().UTC().Unix(), ttl).Err()
}

// IsAccessTokenBlacklisted reports whether the token was revoked.
// If no Redis client is configured, returns (false, nil).
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if blacklistClient == nil {
		return false, nil
	}
	exists, err := blacklistClient.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
