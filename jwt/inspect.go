package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by [Inspect] when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// Expiry is what a client can learn about a bearer token it cannot verify.
type Expiry struct {
	Subject   string
	ExpiresAt time.Time
}

// Inspect decodes tokenStr WITHOUT verifying its signature and returns its expiry.
// The result is only a scheduling hint; the API remains the authority on validity.
func Inspect(tokenStr string) (Expiry, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return Expiry{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Expiry{}, err
	}
	if exp == nil {
		return Expiry{}, ErrNoExpiry
	}
	sub, _ := claims.GetSubject()

	return Expiry{Subject: sub, ExpiresAt: exp.Time}, nil
}

// ExpiresWithin reports whether the token expires before now+d.
func (e Expiry) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !e.ExpiresAt.After(now.Add(d))
}
