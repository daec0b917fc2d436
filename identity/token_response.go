package identity

import (
	"fmt"
	"time"
)

// TokenResponse is the token endpoint response body (RFC 6749 section 5.1)
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	IDToken          string `json:"id_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
	Scope            string `json:"scope,omitempty"`
}

// TokenSet converts the response. Expiry comes from expires_in when present,
// otherwise from the access token's exp claim, otherwise it is left zero.
func (r TokenResponse) TokenSet(now time.Time) TokenSet {
	ts := TokenSet{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		IDToken:      r.IDToken,
	}
	if r.ExpiresIn > 0 {
		ts.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	} else if exp, err := TokenExpiry(r.AccessToken); err == nil {
		ts.Expiry = exp
	}
	return ts
}

// OAuthError is the error body of the token endpoint (RFC 6749 section 5.2)
type OAuthError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error %d: %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("oauth error %d: %s", e.StatusCode, e.Code)
}
