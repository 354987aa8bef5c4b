package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gogotex/docbase/internal/config"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/internal/sessions"
	"github.com/gogotex/docbase/internal/tokens"
	"github.com/gogotex/docbase/pkg/middleware"
	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *AuthHandler, *sessions.Service) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "auth-test-secret-32-bytes-xxxxxxxx"
	sSvc := sessions.NewService(sessions.NewMemoryRepository())
	h := NewAuthHandler(cfg, sSvc, sessions.NewMemoryNonceStore())
	r := gin.New()
	h.Register(r.Group("/"))
	return r, h, sSvc
}

func postJSON(r http.Handler, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got), w.Body.String())
	return got
}

func challenge(t *testing.T, r http.Handler) string {
	t.Helper()
	w := postJSON(r, "/auth/challenge", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	nonce, _ := got["nonce"].(string)
	require.NotEmpty(t, nonce)
	require.Equal(t, string(identity.LoginMessage(nonce)), got["message"])
	return nonce
}

// login runs the full challenge flow and returns the token response.
func login(t *testing.T, r http.Handler, pub identity.Key, priv ed25519.PrivateKey) map[string]interface{} {
	t.Helper()
	nonce := challenge(t, r)
	sig := ed25519.Sign(priv, identity.LoginMessage(nonce))
	body := fmt.Sprintf(`{"authority":%q,"nonce":%q,"signature":%q}`, pub.String(), nonce, base58.Encode(sig))
	w := postJSON(r, "/auth/login", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)
}

func TestLoginSuccess(t *testing.T) {
	r, h, _ := newAuthRouter(t)
	pub, priv, err := identity.GenerateKeypair()
	require.NoError(t, err)

	got := login(t, r, pub, priv)
	assert.Equal(t, pub.String(), got["authority"])
	assert.NotEmpty(t, got["refresh_token"])
	access, _ := got["access_token"].(string)
	require.NotEmpty(t, access)

	// the access token carries the authority as subject
	tok, err := tokens.NewVerifier(h.cfg).Verify(context.Background(), access)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, pub.String(), claims["sub"])
}

func TestLoginTokenActsAsAuthority(t *testing.T) {
	r, h, _ := newAuthRouter(t)
	pub, priv, err := identity.GenerateKeypair()
	require.NoError(t, err)
	access := login(t, r, pub, priv)["access_token"].(string)

	var seen identity.Key
	r.GET("/whoami", middleware.AuthMiddleware(tokens.NewVerifier(h.cfg)), func(c *gin.Context) {
		seen, _ = middleware.Authority(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pub, seen)
}

func TestLoginRefusedWithoutSecret(t *testing.T) {
	r, h, _ := newAuthRouter(t)
	h.cfg.JWT.Secret = ""
	pub, priv, err := identity.GenerateKeypair()
	require.NoError(t, err)

	nonce := challenge(t, r)
	sig := base58.Encode(ed25519.Sign(priv, identity.LoginMessage(nonce)))
	w := postJSON(r, "/auth/login", fmt.Sprintf(`{"authority":%q,"nonce":%q,"signature":%q}`, pub.String(), nonce, sig))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLoginAcceptsBase64Signature(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	pub, priv, err := identity.GenerateKeypair()
	require.NoError(t, err)

	nonce := challenge(t, r)
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, identity.LoginMessage(nonce)))
	w := postJSON(r, "/auth/login", fmt.Sprintf(`{"authority":%q,"nonce":%q,"signature":%q}`, pub.String(), nonce, sig))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLoginRejectsWrongKey(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	pub, _, err := identity.GenerateKeypair()
	require.NoError(t, err)
	_, otherPriv, err := identity.GenerateKeypair()
	require.NoError(t, err)

	nonce := challenge(t, r)
	sig := base58.Encode(ed25519.Sign(otherPriv, identity.LoginMessage(nonce)))
	w := postJSON(r, "/auth/login", fmt.Sprintf(`{"authority":%q,"nonce":%q,"signature":%q}`, pub.String(), nonce, sig))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginNonceIsSingleUse(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	pub, priv, err := identity.GenerateKeypair()
	require.NoError(t, err)

	nonce := challenge(t, r)
	body := fmt.Sprintf(`{"authority":%q,"nonce":%q,"signature":%q}`,
		pub.String(), nonce, base58.Encode(ed25519.Sign(priv, identity.LoginMessage(nonce))))
	require.Equal(t, http.StatusOK, postJSON(r, "/auth/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(r, "/auth/login", body).Code)
}

func TestLoginBadRequest(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/auth/login", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/auth/login", `{"authority":"0OIl","nonce":"n","signature":"s"}`).Code)
}

func TestRefresh_Success(t *testing.T) {
	r, _, sSvc := newAuthRouter(t)
	pub, _, err := identity.GenerateKeypair()
	require.NoError(t, err)
	rt, err := sSvc.CreateSession(context.Background(), pub.String(), time.Hour)
	require.NoError(t, err)

	w := postJSON(r, "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, rt))
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.NotEmpty(t, got["access_token"])
	assert.NotEqual(t, rt, got["refresh_token"])
	assert.Equal(t, pub.String(), got["authority"])

	// the old refresh token was rotated out
	assert.Equal(t, http.StatusUnauthorized, postJSON(r, "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, rt)).Code)
}

func TestRefresh_InvalidRefresh(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	w := postJSON(r, "/auth/refresh", `{"refresh_token":"does-not-exist"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_BlacklistsAccessAndDeletesRefresh(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	r, h, sSvc := newAuthRouter(t)
	pub, priv, err := identity.GenerateKeypair()
	require.NoError(t, err)
	got := login(t, r, pub, priv)
	access := got["access_token"].(string)
	rt := got["refresh_token"].(string)

	// a protected route accepts the token before logout
	r.GET("/me", middleware.AuthMiddleware(tokens.NewVerifier(h.cfg)), func(c *gin.Context) { c.Status(http.StatusOK) })
	me := func() int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, me())

	w := postJSON(r, "/auth/logout", fmt.Sprintf(`{"refresh_token":%q}`, rt), "Authorization", "Bearer "+access)
	assert.Equal(t, http.StatusOK, w.Code)

	sess, err := sSvc.ValidateRefresh(context.Background(), rt)
	assert.NoError(t, err)
	assert.Nil(t, sess)

	ok, err := sessions.IsAccessTokenBlacklisted(context.Background(), access)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, me())
}

func TestParseExpFromJWT_VariousFormats(t *testing.T) {
	extra := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"s1","exp":1700000000}`))
	expTime, err := parseExpFromJWT("hdr." + extra + ".sig")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), expTime.Unix())

	nopayload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"s2"}`))
	_, err = parseExpFromJWT("hdr." + nopayload + ".sig")
	assert.Error(t, err)

	_, err = parseExpFromJWT("not.a.jwt")
	assert.Error(t, err)
}

func TestLogoutAllEndsEverySession(t *testing.T) {
	r, _, sSvc := newAuthRouter(t)
	pub, priv, err := identity.GenerateKeypair()
	require.NoError(t, err)
	first := login(t, r, pub, priv)["refresh_token"].(string)
	second := login(t, r, pub, priv)["refresh_token"].(string)

	w := postJSON(r, "/auth/logout", fmt.Sprintf(`{"refresh_token":%q,"all":true}`, first))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["sessions"])

	for _, rt := range []string{first, second} {
		sess, err := sSvc.ValidateRefresh(context.Background(), rt)
		require.NoError(t, err)
		assert.Nil(t, sess)
	}
	assert.Equal(t, http.StatusUnauthorized, postJSON(r, "/auth/logout", fmt.Sprintf(`{"refresh_token":%q,"all":true}`, first)).Code)
}
