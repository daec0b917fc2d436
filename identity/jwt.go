package identity

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The provider already verified the token; this is only for scheduling refreshes.
func TokenExpiry(rawToken string) (time.Time, error) {
	if strings.TrimSpace(rawToken) == "" {
		return time.Time{}, errors.New("token is empty")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

// ExpiresWithin reports whether expiry is zero or falls before now+d
func ExpiresWithin(expiry time.Time, now time.Time, d time.Duration) bool {
	if expiry.IsZero() {
		return true
	}
	return !expiry.After(now.Add(d))
}
