// Package identity turns the identity provider's session token into a [models.Member].
//
// Sign-in and sign-out happen at the provider. This package only verifies the session JWT it leaves behind,
// either in the session cookie or in an "Authorization: Bearer" header, with an HMAC secret or an RSA public key.
// A request without a token is anonymous.
package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
)

const DefaultCookieName = "__session"

// Claims are the session claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Member maps the claims onto a [models.Member].
func (c *Claims) Member() models.Member {
	return models.Member{
		ID:        c.Subject,
		Username:  c.Username,
		FirstName: c.FirstName,
		Email:     c.Email,
	}
}

// Verifier validates session tokens.
type Verifier struct {
	cookieName string
	key        any
	methods    []string
}

// NewVerifier builds a verifier from config. The HMAC secret wins over the public key when both are set.
//
// With neither configured every request is anonymous.
func NewVerifier(cfg shared.IdentityConfig) (*Verifier, error) {
	v := &Verifier{cookieName: cfg.CookieName}
	if v.cookieName == "" {
		v.cookieName = DefaultCookieName
	}

	switch {
	case cfg.JWTSecret != "":
		v.key = []byte(cfg.JWTSecret)
		v.methods = []string{"HS256", "HS384", "HS512"}
	case cfg.PublicKeyPath != "":
		data, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read identity public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("%w: identity public key: %v", shared.ErrInvalidConfig, err)
		}
		v.key = key
		v.methods = []string{"RS256", "RS384", "RS512"}
	}

	return v, nil
}

// Enabled reports whether a verification key is configured.
func (v *Verifier) Enabled() bool { return v.key != nil }

// Verify parses and validates a token.
func (v *Verifier) Verify(token string) (models.Member, error) {
	if !v.Enabled() {
		return models.Member{}, fmt.Errorf("%w: no verification key configured", shared.ErrInvalidSession)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.methods), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return models.Member{}, fmt.Errorf("%w: %v", shared.ErrInvalidSession, err)
	}
	if !parsed.Valid {
		return models.Member{}, shared.ErrInvalidSession
	}

	return claims.Member(), nil
}

// FromRequest returns the member behind the request's session token.
//
// No token, or no configured key, yields the anonymous member and a nil error.
func (v *Verifier) FromRequest(r *http.Request) (models.Member, error) {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(v.cookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" || !v.Enabled() {
		return models.Member{}, nil
	}
	return v.Verify(token)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Sign issues a token for m, signed with an HMAC secret or an RSA private key.
//
// Used by tests and local development in place of the provider.
func Sign(m models.Member, key any, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   m.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username:  m.Username,
		FirstName: m.FirstName,
		Email:     m.Email,
	}

	var method jwt.SigningMethod
	switch key.(type) {
	case []byte:
		method = jwt.SigningMethodHS256
	case *rsa.PrivateKey:
		method = jwt.SigningMethodRS256
	default:
		return "", errors.New("unsupported signing key")
	}

	return jwt.NewWithClaims(method, claims).SignedString(key)
}

type memberKey struct{}

// WithMember stores m in ctx.
func WithMember(ctx context.Context, m models.Member) context.Context {
	return context.WithValue(ctx, memberKey{}, m)
}

// MemberFrom returns the member stored in ctx, or the anonymous member.
func MemberFrom(ctx context.Context) models.Member {
	m, _ := ctx.Value(memberKey{}).(models.Member)
	return m
}
