// Package authflow keeps authorization-code flows that are waiting for their
// callback, keyed by the OAuth state parameter.
package authflow

import "time"

type Flow struct {
	CodeVerifier string
	Nonce        string
	RedirectURI  string
	ReturnTo     string
	Action       string
	CreatedAt    time.Time
}

// Expired reports whether the flow is older than ttl at now
func (f *Flow) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(f.CreatedAt) > ttl
}

type Repo interface {
	Upsert(state string, flow *Flow) error
	Get(state string) (*Flow, error)
	// Take returns the flow and removes it, so a state can be redeemed once
	Take(state string) (*Flow, error)
	Delete(state string) error
	// Prune removes flows created before cutoff and returns how many were removed
	Prune(cutoff time.Time) int
}
