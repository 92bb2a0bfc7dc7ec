package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the exp claim of a JWT bearer token. Opaque tokens and
// tokens without exp report false. The signature is not checked; only the
// server can do that.
func TokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsTokenExpired returns true if token is a JWT that expires before
// now+margin. Tokens whose expiry cannot be read are never expired.
func IsTokenExpired(token string, now time.Time, margin time.Duration) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return now.Add(margin).After(exp)
}
