package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether a bearer token is missing, unreadable or past
// its exp claim. The signature is not checked; the server does that.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Before(now)
}

// TokenSubject returns the sub claim of a token without verifying it.
func TokenSubject(token string) string {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}
