package providerfake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
)

var (
	_ identity.Provider      = (*FakeProvider)(nil)
	_ identity.RedirectLogin = (*FakeProvider)(nil)
)

// FakeProvider is an identity.Provider whose state is driven by the test
type FakeProvider struct {
	observers identity.Observers

	lock         sync.Mutex
	state        identity.State
	refreshToken string

	ServerURL string
	RealmName string
	Client    string

	LoginErr       error
	UpdateTokenErr error
	AuthURL        string

	LoginCalls       []identity.LoginOptions
	LogoutCalls      int
	RegisterCalls    int
	UpdateTokenCalls int
	SetTokensCalls   []identity.TokenSet
	CompletedStates  []string
}

func NewFakeProvider(serverURL, realm string) *FakeProvider {
	return &FakeProvider{
		ServerURL: serverURL,
		RealmName: realm,
		Client:    "portal",
		AuthURL:   serverURL + "/auth",
	}
}

// Emit replaces the state and notifies observers
func (f *FakeProvider) Emit(s identity.State) {
	f.lock.Lock()
	f.state = s
	f.lock.Unlock()
	f.observers.Notify(s)
}

// SetRefreshToken sets the refresh token without notifying
func (f *FakeProvider) SetRefreshToken(token string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshToken = token
}

func (f *FakeProvider) State() identity.State {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.state
}

func (f *FakeProvider) Subscribe(observer func(identity.State)) func() {
	return f.observers.Subscribe(observer)
}

func (f *FakeProvider) Observers() int {
	return f.observers.Len()
}

func (f *FakeProvider) AuthServerURL() string { return f.ServerURL }
func (f *FakeProvider) Realm() string         { return f.RealmName }
func (f *FakeProvider) ClientID() string      { return f.Client }

func (f *FakeProvider) RefreshToken() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.refreshToken
}

func (f *FakeProvider) SetTokens(_ context.Context, exchanged string, tokens identity.TokenSet) error {
	f.lock.Lock()
	f.SetTokensCalls = append(f.SetTokensCalls, tokens)
	if f.refreshToken != exchanged {
		f.lock.Unlock()
		return errors.ErrSessionChanged
	}
	if tokens.RefreshToken != "" {
		f.refreshToken = tokens.RefreshToken
	}
	f.state = identity.State{Initialized: true, Authenticated: tokens.AccessToken != "", Token: tokens.AccessToken}
	s := f.state
	f.lock.Unlock()

	f.observers.Notify(s)
	return nil
}

func (f *FakeProvider) Login(_ context.Context, opts identity.LoginOptions) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.LoginCalls = append(f.LoginCalls, opts)
	return f.LoginErr
}

func (f *FakeProvider) Logout(_ context.Context) error {
	f.lock.Lock()
	f.LogoutCalls++
	f.refreshToken = ""
	f.state = identity.State{Initialized: f.state.Initialized}
	s := f.state
	f.lock.Unlock()

	f.observers.Notify(s)
	return nil
}

func (f *FakeProvider) Register(_ context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.RegisterCalls++
	return f.LoginErr
}

func (f *FakeProvider) UpdateToken(_ context.Context, _ time.Duration) (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.UpdateTokenCalls++
	if f.UpdateTokenErr != nil {
		return false, f.UpdateTokenErr
	}
	return false, nil
}

func (f *FakeProvider) BeginLogin(opts identity.LoginOptions) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.LoginCalls = append(f.LoginCalls, opts)
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	return f.AuthURL + "?action=" + opts.Action + "&return_to=" + opts.ReturnTo, nil
}

// CompleteLogin authenticates with code as the access token
func (f *FakeProvider) CompleteLogin(_ context.Context, state, code string) (string, error) {
	f.lock.Lock()
	f.CompletedStates = append(f.CompletedStates, state)
	if f.LoginErr != nil {
		err := f.LoginErr
		f.lock.Unlock()
		return "", err
	}
	f.state = identity.State{Initialized: true, Authenticated: true, Token: code}
	s := f.state
	f.lock.Unlock()

	f.observers.Notify(s)
	return "/dashboard/overview", nil
}

func (f *FakeProvider) Counts() (logouts, updates int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.LogoutCalls, f.UpdateTokenCalls
}
