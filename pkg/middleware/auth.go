package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/internal/sessions"
)

// gin context keys set by AuthMiddleware
const (
	ClaimsKey    = "claims"
	AuthorityKey = "authority"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// AuthorityToken is a token issued by this service. Its subject is a base58
// authority and is used as is; every other token has its subject hashed.
type AuthorityToken interface {
	Token
	Authority() (identity.Key, error)
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the
// provided verifier and records the signing authority derived from the "sub" claim.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		black, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token check failed"})
			return
		}
		if black {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		authority := identity.FromSubject(sub)
		if at, ok := idToken.(AuthorityToken); ok {
			if authority, err = at.Authority(); err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Set(AuthorityKey, authority)
		c.Next()
	}
}

// Authority returns the signer recorded by AuthMiddleware.
func Authority(c *gin.Context) (identity.Key, bool) {
	v, ok := c.Get(AuthorityKey)
	if !ok {
		return identity.Zero, false
	}
	k, ok := v.(identity.Key)
	return k, ok && !k.IsZero()
}
