// Package keycloak implements identity.Provider against a Keycloak realm using
// OIDC discovery and the authorization code flow with PKCE.
package keycloak

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/identity/authflow"
	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var (
	_ identity.Provider      = (*Client)(nil)
	_ identity.RedirectLogin = (*Client)(nil)
)

// BrowserOpener presents an authorization URL to the user
type BrowserOpener func(authURL string) error

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBrowserOpener(open BrowserOpener) Option {
	return func(c *Client) { c.openBrowser = open }
}

func WithFlowRepo(repo authflow.Repo) Option {
	return func(c *Client) { c.flows = repo }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

type Client struct {
	cfg         config.IdentityConfig
	store       storage.Store
	flows       authflow.Repo
	httpClient  *http.Client
	openBrowser BrowserOpener
	now         func() time.Time

	observers identity.Observers

	discoveryLock sync.Mutex
	oidcProvider  *oidc.Provider
	oauthConfig   *oauth2.Config
	verifier      *oidc.IDTokenVerifier
	endSessionURL string

	lock        sync.RWMutex
	initialized bool
	tokens      identity.TokenSet
}

func New(cfg config.IdentityConfig, store storage.Store, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		store:      store,
		flows:      authflow.NewInMemoryRepo(),
		httpClient: http.DefaultClient,
		openBrowser: func(authURL string) error {
			log.Info().Str("url", authURL).Msg("Open this URL in a browser to continue")
			return nil
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init discovers the realm and restores a previous session from the persisted
// refresh token. The client is initialized when Init returns, even on error.
func (c *Client) Init(ctx context.Context) error {
	defer func() {
		c.lock.Lock()
		c.initialized = true
		c.lock.Unlock()
		c.notify()
	}()

	if err := c.discover(ctx); err != nil {
		return err
	}

	refreshToken, err := c.store.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read persisted refresh token")
		return nil
	}
	if refreshToken == "" {
		return nil
	}

	tokens, err := c.refresh(ctx, refreshToken)
	if err != nil {
		log.Info().Err(err).Msg("Persisted session could not be restored")
		if err := c.store.Remove(ctx, storage.KeyRefreshToken); err != nil {
			log.Warn().Err(err).Msg("Failed to remove stale refresh token")
		}
		return nil
	}

	c.lock.Lock()
	c.tokens = tokens
	c.lock.Unlock()
	c.persistRefreshToken(ctx, tokens.RefreshToken)
	return nil
}

func (c *Client) discover(ctx context.Context) error {
	c.discoveryLock.Lock()
	defer c.discoveryLock.Unlock()

	if c.oidcProvider != nil {
		return nil
	}

	issuer := identity.RealmURL(c.cfg.GetAuthServerURL(), c.cfg.GetRealm())
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), issuer)
	if err != nil {
		return fmt.Errorf("[keycloak discover] %s: %w", issuer, err)
	}

	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return fmt.Errorf("[keycloak discover] claims: %w", err)
	}

	endpoint := provider.Endpoint()
	if c.cfg.GetClientSecret() == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	c.oidcProvider = provider
	c.endSessionURL = extra.EndSessionEndpoint
	c.oauthConfig = &oauth2.Config{
		ClientID:     c.cfg.GetClientID(),
		ClientSecret: c.cfg.GetClientSecret(),
		Endpoint:     endpoint,
		RedirectURL:  "http://" + c.cfg.GetCallbackAddress() + c.cfg.GetCallbackPath(),
		Scopes:       c.cfg.GetScopes(),
	}
	c.verifier = provider.Verifier(&oidc.Config{ClientID: c.cfg.GetClientID()})
	return nil
}

func (c *Client) oauth() (*oauth2.Config, *oidc.IDTokenVerifier, string) {
	c.discoveryLock.Lock()
	defer c.discoveryLock.Unlock()
	return c.oauthConfig, c.verifier, c.endSessionURL
}

func (c *Client) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (identity.TokenSet, error) {
	oauthConfig, _, _ := c.oauth()
	if oauthConfig == nil {
		return identity.TokenSet{}, errors.ErrNotInitialized
	}

	src := oauthConfig.TokenSource(c.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return identity.TokenSet{}, fmt.Errorf("%w: %v", errors.ErrRefreshFailed, err)
	}
	return tokenSet(tok), nil
}

func tokenSet(tok *oauth2.Token) identity.TokenSet {
	ts := identity.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = idToken
	}
	if ts.Expiry.IsZero() {
		if exp, err := identity.TokenExpiry(ts.AccessToken); err == nil {
			ts.Expiry = exp
		}
	}
	return ts
}

func (c *Client) State() identity.State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.stateLocked()
}

func (c *Client) stateLocked() identity.State {
	s := identity.State{Initialized: c.initialized}
	if c.initialized && c.tokens.AccessToken != "" {
		s.Authenticated = true
		s.Token = c.tokens.AccessToken
	}
	return s
}

func (c *Client) Subscribe(observer func(identity.State)) func() {
	return c.observers.Subscribe(observer)
}

func (c *Client) notify() {
	c.observers.Notify(c.State())
}

func (c *Client) AuthServerURL() string { return c.cfg.GetAuthServerURL() }
func (c *Client) Realm() string         { return c.cfg.GetRealm() }
func (c *Client) ClientID() string      { return c.cfg.GetClientID() }

func (c *Client) RefreshToken() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.tokens.RefreshToken
}

// IDToken is the raw ID token of the current session, if any
func (c *Client) IDToken() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.tokens.IDToken
}

// SetTokens stores a token set obtained outside the client. A missing refresh
// token keeps the current one. Tokens exchanged from a refresh token that a
// logout or another refresh has since replaced are rejected.
func (c *Client) SetTokens(ctx context.Context, exchanged string, tokens identity.TokenSet) error {
	c.lock.Lock()
	if c.tokens.RefreshToken != exchanged {
		c.lock.Unlock()
		return errors.ErrSessionChanged
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = c.tokens.RefreshToken
	}
	if tokens.IDToken == "" {
		tokens.IDToken = c.tokens.IDToken
	}
	if tokens.Expiry.IsZero() {
		if exp, err := identity.TokenExpiry(tokens.AccessToken); err == nil {
			tokens.Expiry = exp
		}
	}
	c.tokens = tokens
	// written under the lock so a concurrent Logout removes it afterwards
	err := c.store.Set(ctx, storage.KeyRefreshToken, tokens.RefreshToken)
	c.lock.Unlock()

	c.notify()
	return errors.Wrapf(err, "[keycloak SetTokens] persist refresh token")
}

func (c *Client) persistRefreshToken(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := c.store.Set(ctx, storage.KeyRefreshToken, refreshToken); err != nil {
		log.Warn().Err(err).Msg("Failed to persist refresh token")
	}
}

// UpdateToken refreshes the access token when it expires within minValidity
func (c *Client) UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error) {
	c.lock.RLock()
	initialized := c.initialized
	current := c.tokens
	c.lock.RUnlock()

	if !initialized {
		return false, errors.ErrNotInitialized
	}
	if current.AccessToken != "" && !identity.ExpiresWithin(current.Expiry, c.now(), minValidity) {
		return false, nil
	}
	if current.RefreshToken == "" {
		return false, errors.ErrNoRefreshToken
	}

	tokens, err := c.refresh(ctx, current.RefreshToken)
	if err != nil {
		return false, err
	}
	if err := c.SetTokens(ctx, current.RefreshToken, tokens); err != nil {
		if errors.Is(err, errors.ErrSessionChanged) {
			return false, err
		}
		log.Warn().Err(err).Msg("Refreshed token could not be persisted")
	}
	return true, nil
}

// WatchExpiry keeps the access token fresh until ctx is done. A refresh that
// fails ends the session.
func (c *Client) WatchExpiry(ctx context.Context, interval, minValidity time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.State().Authenticated {
				continue
			}
			refreshed, err := c.UpdateToken(ctx, minValidity)
			if errors.Is(err, errors.ErrSessionChanged) {
				continue
			}
			if err != nil {
				log.Err(err).Msg("Token expired and could not be refreshed, logging out")
				_ = c.Logout(ctx)
				continue
			}
			if refreshed {
				log.Debug().Msg("Access token refreshed")
			}
		}
	}
}

// Logout ends the local session and asks the realm to end its session. Calling it
// when already logged out is harmless.
func (c *Client) Logout(ctx context.Context) error {
	c.lock.Lock()
	refreshToken := c.tokens.RefreshToken
	c.tokens = identity.TokenSet{}
	if err := c.store.Remove(ctx, storage.KeyRefreshToken); err != nil {
		log.Warn().Err(err).Msg("Failed to remove persisted refresh token")
	}
	c.lock.Unlock()

	if refreshToken != "" {
		if err := c.endSession(ctx, refreshToken); err != nil {
			log.Warn().Err(err).Msg("Realm session could not be ended")
		}
	}

	c.notify()
	return nil
}

func (c *Client) endSession(ctx context.Context, refreshToken string) error {
	_, _, endSessionURL := c.oauth()
	if endSessionURL == "" {
		return nil
	}

	form := strings.NewReader(endSessionForm(c.cfg, refreshToken).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endSessionURL, form)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("end session returned %d", resp.StatusCode)
	}
	return nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
