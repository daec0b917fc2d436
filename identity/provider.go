// Package identity describes the identity-provider capability the portal consumes:
// a provider that owns the access credential, reports its state to observers and
// knows how to log users in and out.
package identity

import (
	"context"
	"time"
)

// Login actions understood by providers
const (
	ActionRegister       = "register"
	ActionUpdatePassword = "UPDATE_PASSWORD"
)

// State is the observable part of a provider. Token is empty unless Authenticated.
type State struct {
	Initialized   bool
	Authenticated bool
	Token         string
}

// TokenSet is the result of a successful code exchange or refresh grant
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

type LoginOptions struct {
	// RedirectURI overrides the configured callback
	RedirectURI string
	// Action is ActionRegister, a required action such as ActionUpdatePassword, or empty
	Action string
	// ReturnTo is where a web login lands once the callback completes
	ReturnTo string
}

// Provider is the identity-provider client. Observers registered with Subscribe are
// called synchronously, in registration order, after every state change and must not
// call back into the provider's mutating methods.
type Provider interface {
	State() State
	Subscribe(observer func(State)) (unsubscribe func())

	AuthServerURL() string
	Realm() string
	ClientID() string
	RefreshToken() string

	// SetTokens replaces the credential triple after an out-of-band refresh.
	// exchanged is the refresh token the grant used; when it is no longer the
	// current one the tokens are rejected with errors.ErrSessionChanged.
	SetTokens(ctx context.Context, exchanged string, tokens TokenSet) error

	Login(ctx context.Context, opts LoginOptions) error
	Logout(ctx context.Context) error
	Register(ctx context.Context) error

	// UpdateToken refreshes the credential if it expires within minValidity and
	// reports whether a refresh happened.
	UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error)
}

// RedirectLogin is implemented by providers that can split the login flow across
// two HTTP requests, as a web front end needs.
type RedirectLogin interface {
	BeginLogin(opts LoginOptions) (authURL string, err error)
	CompleteLogin(ctx context.Context, state, code string) (returnTo string, err error)
}
