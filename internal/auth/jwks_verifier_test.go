package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/config"
)

const (
	testKeyID    = "signing-key-1"
	testClientID = "aiseo-client"
)

// testIssuer serves an OIDC discovery document and its key set.
type testIssuer struct {
	server *httptest.Server
	key    *rsa.PrivateKey
	// advertised overrides the issuer named in the discovery document
	advertised string
}

func newTestIssuer(t *testing.T) *testIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	iss := &testIssuer{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		issuer := iss.server.URL
		if iss.advertised != "" {
			issuer = iss.advertised
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   issuer,
			"jwks_uri": iss.server.URL + "/oauth/v2/keys",
		})
	})
	mux.HandleFunc("/oauth/v2/keys", func(w http.ResponseWriter, r *http.Request) {
		pub := key.PublicKey
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKeyID,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})

	iss.server = httptest.NewServer(mux)
	t.Cleanup(iss.server.Close)
	return iss
}

func (iss *testIssuer) verifier(t *testing.T) *JWKSVerifier {
	t.Helper()
	v, err := NewJWKSVerifier(&config.ZitadelConfig{Issuer: iss.server.URL, ClientID: testClientID})
	if err != nil {
		t.Fatalf("NewJWKSVerifier() error: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return v
}

type tokenOpts struct {
	issuer   string
	audience string
	expires  time.Time
	key      *rsa.PrivateKey
}

func (iss *testIssuer) token(t *testing.T, mutate func(*tokenOpts)) string {
	t.Helper()
	opts := tokenOpts{
		issuer:   iss.server.URL,
		audience: testClientID,
		expires:  time.Now().Add(time.Hour),
		key:      iss.key,
	}
	if mutate != nil {
		mutate(&opts)
	}

	claims := Claims{
		UserID:            "oidc-user-1",
		Email:             "writer@example.com",
		PreferredUsername: "writer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    opts.issuer,
			Audience:  jwt.ClaimStrings{opts.audience},
			ExpiresAt: jwt.NewNumericDate(opts.expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKeyID
	signed, err := tok.SignedString(opts.key)
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}
	return signed
}

func TestJWKSVerifier_AcceptsIssuerToken(t *testing.T) {
	iss := newTestIssuer(t)
	a := NewAuthenticator(iss.verifier(t), "")

	id, err := a.Authenticate("Bearer " + iss.token(t, nil))
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if id.UserID != "oidc-user-1" || id.Email != "writer@example.com" {
		t.Errorf("identity = %+v", id)
	}
	if id.Name != "writer" {
		t.Errorf("name should fall back to preferred_username, got %q", id.Name)
	}
}

func TestJWKSVerifier_Rejections(t *testing.T) {
	iss := newTestIssuer(t)
	v := iss.verifier(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*tokenOpts)
		wantErr error
	}{
		{"wrong audience", func(o *tokenOpts) { o.audience = "someone-else" }, jwt.ErrTokenInvalidAudience},
		{"wrong issuer", func(o *tokenOpts) { o.issuer = "https://evil.example.com" }, jwt.ErrTokenInvalidIssuer},
		{"expired", func(o *tokenOpts) { o.expires = time.Now().Add(-time.Hour) }, jwt.ErrTokenExpired},
		{"unknown signing key", func(o *tokenOpts) { o.key = otherKey }, jwt.ErrTokenSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := iss.token(t, tt.mutate)

			if _, err := v.Verify(token); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}

			_, err := NewAuthenticator(v, "").Authenticate("Bearer " + token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Authenticate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWKSVerifier_LegacyFallback(t *testing.T) {
	iss := newTestIssuer(t)
	legacy, err := IssueLegacyToken("legacy-user", "", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueLegacyToken() error: %v", err)
	}

	id, err := NewAuthenticator(iss.verifier(t), testSecret).Authenticate("Bearer " + legacy)
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if id.UserID != "legacy-user" {
		t.Errorf("user = %q, want legacy-user", id.UserID)
	}
}

func TestNewJWKSVerifier_DiscoveryErrors(t *testing.T) {
	t.Run("issuer mismatch", func(t *testing.T) {
		iss := newTestIssuer(t)
		iss.advertised = "https://other-issuer.example.com"

		_, err := NewJWKSVerifier(&config.ZitadelConfig{Issuer: iss.server.URL})
		if err == nil || !strings.Contains(err.Error(), "does not match") {
			t.Errorf("expected issuer mismatch error, got %v", err)
		}
	})

	t.Run("missing discovery document", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := NewJWKSVerifier(&config.ZitadelConfig{Issuer: srv.URL})
		if err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("no issuer", func(t *testing.T) {
		if _, err := NewJWKSVerifier(&config.ZitadelConfig{}); err == nil {
			t.Error("expected error without issuer")
		}
	})
}
