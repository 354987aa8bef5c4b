package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gogotex/docbase/internal/config"
	"github.com/gogotex/docbase/pkg/middleware"
)

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// Issuer returns the Keycloak realm issuer URL, or the bare URL when no realm
// is configured (older deployments expose the realm path in the URL).
func Issuer(kc config.KeycloakConfig) string {
	base := strings.TrimRight(kc.URL, "/")
	if kc.Realm == "" {
		return base
	}
	return base + "/realms/" + kc.Realm
}

// NewKeycloakVerifier discovers the configured Keycloak realm.
func NewKeycloakVerifier(ctx context.Context, kc config.KeycloakConfig) (*Verifier, error) {
	if kc.URL == "" || kc.ClientID == "" {
		return nil, fmt.Errorf("keycloak not configured")
	}
	return NewVerifier(ctx, Issuer(kc), kc.ClientID)
}

// Verify verifies the provided raw ID token using the provided context and returns a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

// Chain tries each verifier in order and accepts the first success. It lets
// locally issued access tokens and Keycloak ID tokens share one middleware.
type Chain []middleware.Verifier

func (c Chain) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	var last error = fmt.Errorf("no verifier configured")
	for _, v := range c {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		last = err
	}
	return nil, last
}
