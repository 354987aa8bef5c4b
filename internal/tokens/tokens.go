package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gogotex/docbase/internal/config"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret is returned when signing or verifying without a configured key.
var ErrNoSecret = errors.New("tokens: JWT secret is not configured")

// GenerateAccessToken creates a signed JWT access token whose subject is the
// base58 authority.
func GenerateAccessToken(cfg *config.Config, authority identity.Key, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", ErrNoSecret
	}
	jti, err := identity.NewAddress()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": authority.String(),
		"jti": jti.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// claimsToken exposes verified JWT claims to the auth middleware.
type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Authority returns the authority the token was issued to.
func (t *claimsToken) Authority() (identity.Key, error) {
	sub, _ := t.claims["sub"].(string)
	return identity.Parse(sub)
}

// Verifier checks access tokens issued by GenerateAccessToken.
type Verifier struct {
	secret []byte
}

func NewVerifier(cfg *config.Config) *Verifier {
	return &Verifier{secret: []byte(cfg.JWT.Secret)}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	if len(v.secret) == 0 {
		return nil, ErrNoSecret
	}
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &claimsToken{claims: claims}, nil
}
