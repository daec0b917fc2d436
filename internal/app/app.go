// Package app wires the portal's components together
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/restaurant-portal/account"
	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/identity/keycloak"
	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/jrsteele09/restaurant-portal/portal"
	"github.com/jrsteele09/restaurant-portal/server"
	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/rs/zerolog/log"
)

type options struct {
	store         storage.Store
	httpClient    *http.Client
	browserOpener keycloak.BrowserOpener
}

type Option func(*options)

// WithStore replaces the configured storage driver
func WithStore(store storage.Store) Option {
	return func(o *options) { o.store = store }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithBrowserOpener(open keycloak.BrowserOpener) Option {
	return func(o *options) { o.browserOpener = open }
}

type App struct {
	Config   config.Config
	Store    storage.Store
	Identity *keycloak.Client
	Gateway  *gateway.Gateway
	Session  *session.Manager
	Portal   *portal.Client
	Account  *account.Service

	storeCloser io.Closer
}

// New builds the components without contacting the provider; call Init next.
// The session manager subscribes before Init so it sees the first state.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if timeout := cfg.GetRequestTimeout(); timeout > 0 && o.httpClient == http.DefaultClient {
		o.httpClient = &http.Client{Timeout: timeout}
	}

	a := &App{Config: cfg, storeCloser: nopCloser{}}
	if o.store != nil {
		a.Store = o.store
	} else {
		store, closer, err := OpenStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("[app New] %w", err)
		}
		a.Store, a.storeCloser = store, closer
	}

	kcOpts := []keycloak.Option{keycloak.WithHTTPClient(o.httpClient)}
	if o.browserOpener != nil {
		kcOpts = append(kcOpts, keycloak.WithBrowserOpener(o.browserOpener))
	}
	a.Identity = keycloak.New(cfg, a.Store, kcOpts...)

	refresher := gateway.NewProviderRefresher(a.Identity, a.Store, o.httpClient)
	a.Gateway = gateway.New(a.Store, func() string { return a.Session.Token() }, refresher,
		gateway.WithBaseURL(cfg.GetAPIBaseURL()),
		gateway.WithHTTPClient(o.httpClient),
		gateway.WithRefreshDeduplication(cfg.GetRefreshDeduplication()),
	)
	a.Session = session.New(a.Identity, a.Store, a.Gateway)
	a.Portal = portal.NewClient(a.Gateway)
	a.Account = account.NewService(a.Gateway, a.Identity)

	return a, nil
}

// Init initializes the identity provider. The session is resolved afterwards
// whether or not the provider could be reached.
func (a *App) Init(ctx context.Context) error {
	if err := a.Identity.Init(ctx); err != nil {
		return fmt.Errorf("[app Init] %w", err)
	}
	log.Debug().Bool("loggedIn", a.Session.Snapshot().LoggedIn).Msg("Identity provider initialized")
	return nil
}

func (a *App) NewServer() (*server.Server, error) {
	return server.New(a.Config, server.Deps{
		Provider: a.Identity,
		Login:    a.Identity,
		Session:  a.Session,
		Portal:   a.Portal,
		Account:  a.Account,
	})
}

// WatchExpiry keeps the credential fresh until ctx is done
func (a *App) WatchExpiry(ctx context.Context) {
	a.Identity.WatchExpiry(ctx, a.Config.GetTokenCheckInterval(), a.Config.GetMinTokenValidity())
}

func (a *App) Close() error {
	a.Session.Close()
	if err := a.storeCloser.Close(); err != nil {
		return fmt.Errorf("[app Close] %w", err)
	}
	return nil
}
