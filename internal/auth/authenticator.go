package auth

import (
	"errors"
	"strings"
)

var (
	ErrMissingToken    = errors.New("missing authorization header")
	ErrMalformedHeader = errors.New("invalid authorization header format")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrNotConfigured   = errors.New("authentication not configured")
)

// Identity is the caller a bearer token resolved to
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Authenticator resolves bearer tokens. OIDC tokens are tried first; HMAC
// tokens signed with the legacy secret are accepted as a fallback.
type Authenticator struct {
	verifier  TokenVerifier
	jwtSecret string
}

// NewAuthenticator creates an authenticator. Either argument may be empty,
// but not both for it to accept anything.
func NewAuthenticator(verifier TokenVerifier, jwtSecret string) *Authenticator {
	return &Authenticator{verifier: verifier, jwtSecret: jwtSecret}
}

// Configured reports whether any verification method is available.
func (a *Authenticator) Configured() bool {
	return a.verifier != nil || a.jwtSecret != ""
}

// Authenticate validates an Authorization header value.
func (a *Authenticator) Authenticate(header string) (*Identity, error) {
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, ErrMalformedHeader
	}
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	if a.verifier != nil {
		id, err := a.verifier.Verify(token)
		if err == nil {
			return id, nil
		}
		if a.jwtSecret == "" {
			return nil, ErrInvalidToken
		}
	}

	claims, err := ValidateLegacyToken(token, a.jwtSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
