// Package auth carries the bearer token for the registration API.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource holds a bearer token obtained out of band. Registration
// API tokens are JWTs valid for ten hours; the expiry claim is decoded
// without verification (the server owns verification) so callers can
// warn before the token lapses. Opaque tokens are accepted with no
// known expiry.
type TokenSource struct {
	token     string
	expiresAt time.Time
}

func NewTokenSource(token string) *TokenSource {
	ts := &TokenSource{token: strings.TrimSpace(token)}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(ts.token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			ts.expiresAt = exp.Time
		}
	}
	return ts
}

func (t *TokenSource) Token() string { return t.token }

// ExpiresAt reports the decoded expiry; ok is false for opaque tokens.
func (t *TokenSource) ExpiresAt() (time.Time, bool) {
	return t.expiresAt, !t.expiresAt.IsZero()
}

// Expired reports whether a known expiry has passed. Opaque tokens are
// never considered expired here.
func (t *TokenSource) Expired(now time.Time) bool {
	return !t.expiresAt.IsZero() && now.After(t.expiresAt)
}
