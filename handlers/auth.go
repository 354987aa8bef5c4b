package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gogotex/docbase/internal/config"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/internal/sessions"
	"github.com/gogotex/docbase/internal/tokens"
	"github.com/gogotex/docbase/pkg/logger"
	"github.com/mr-tron/base58"
)

// LoginRequest answers a challenge with an ed25519 signature over
// identity.LoginMessage(nonce). The signature may be base58 or base64.
type LoginRequest struct {
	Authority string `json:"authority" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	sessionsSvc *sessions.Service
	nonces      sessions.NonceStore
}

func NewAuthHandler(cfg *config.Config, s *sessions.Service, n sessions.NonceStore) *AuthHandler {
	return &AuthHandler{cfg: cfg, sessionsSvc: s, nonces: n}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/challenge", h.Challenge)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// Challenge issues a single-use nonce for Login.
func (h *AuthHandler) Challenge(c *gin.Context) {
	ttl := h.challengeTTL()
	n, err := h.nonces.Issue(c.Request.Context(), ttl)
	if err != nil {
		logger.Errorf("issue nonce: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue challenge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nonce":      n,
		"message":    string(identity.LoginMessage(n)),
		"expires_in": int(ttl.Seconds()),
	})
}

// Login verifies the signed challenge and returns an access and refresh token.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.cfg.JWT.Secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token signing is not configured"})
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	authority, err := identity.Parse(req.Authority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sig, err := decodeSignature(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature must be base58 or base64"})
		return
	}
	ok, err := h.nonces.Consume(c.Request.Context(), req.Nonce)
	if err != nil {
		logger.Errorf("consume nonce: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "challenge lookup failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown or expired challenge"})
		return
	}
	if err := identity.Verify(authority, identity.LoginMessage(req.Nonce), sig); err != nil {
		logger.Warnf("login rejected for %s: %v", authority, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), authority.String(), h.refreshTTL())
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	h.respondWithTokens(c, authority, rft)
}

// Refresh rotates a refresh token and returns a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, next, err := h.sessionsSvc.Rotate(c.Request.Context(), req.RefreshToken, h.refreshTTL())
	if err != nil {
		logger.Errorf("refresh: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	authority, err := identity.Parse(sess.Authority)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "corrupt session"})
		return
	}
	h.respondWithTokens(c, authority, next)
}

// Logout invalidates the refresh token and (optionally) blacklists the current
// access token. With "all" set it ends every session of the token's authority.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
		All          bool   `json:"all"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	auth := c.GetHeader("Authorization")
	if auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				if ttl := time.Until(exp); ttl > 0 {
					if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
						c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
						return
					}
				}
			}
		}
	}

	if req.All {
		sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
			return
		}
		if sess == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		n, err := h.sessionsSvc.RevokeAuthority(c.Request.Context(), sess.Authority)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove sessions"})
			return
		}
		logger.Infof("revoked %d sessions of %s", n, sess.Authority)
		c.JSON(http.StatusOK, gin.H{"message": "logged out", "sessions": n})
		return
	}

	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out", "sessions": 1})
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, authority identity.Key, refresh string) {
	ttl := h.accessTTL()
	access, err := tokens.GenerateAccessToken(h.cfg, authority, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"authority":     authority,
		"expires_in":    int(ttl.Seconds()),
	})
}

func (h *AuthHandler) accessTTL() time.Duration {
	if h.cfg.JWT.AccessTokenTTL > 0 {
		return h.cfg.JWT.AccessTokenTTL
	}
	return 15 * time.Minute
}

func (h *AuthHandler) refreshTTL() time.Duration {
	if h.cfg.JWT.RefreshTokenTTL > 0 {
		return h.cfg.JWT.RefreshTokenTTL
	}
	return 7 * 24 * time.Hour
}

func (h *AuthHandler) challengeTTL() time.Duration {
	if h.cfg.JWT.ChallengeTTL > 0 {
		return h.cfg.JWT.ChallengeTTL
	}
	return 2 * time.Minute
}

func decodeSignature(s string) ([]byte, error) {
	if b, err := base58.Decode(s); err == nil && len(b) > 0 {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// This performs payload-only parsing (no signature verification) and is suitable
// for computing remaining TTLs for blacklisting purposes.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	var claims struct {
		Exp *float64 `json:"exp"`
	}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.Exp == nil {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	return time.Unix(int64(*claims.Exp), 0), nil
}
