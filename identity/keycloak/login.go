package keycloak

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/identity/authflow"
	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"golang.org/x/oauth2"
)

// BeginLogin records a new flow and returns the authorization URL to send the user to
func (c *Client) BeginLogin(opts identity.LoginOptions) (string, error) {
	oauthConfig, _, _ := c.oauth()
	if oauthConfig == nil {
		return "", errors.ErrNotInitialized
	}

	state, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("[keycloak BeginLogin] state: %w", err)
	}
	nonce, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("[keycloak BeginLogin] nonce: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	redirectURI := opts.RedirectURI
	if redirectURI == "" {
		redirectURI = oauthConfig.RedirectURL
	}

	now := c.now()
	c.flows.Prune(now.Add(-c.cfg.GetAuthCodeTimeout()))
	err = c.flows.Upsert(state, &authflow.Flow{
		CodeVerifier: verifier,
		Nonce:        nonce,
		RedirectURI:  redirectURI,
		ReturnTo:     opts.ReturnTo,
		Action:       opts.Action,
		CreatedAt:    now,
	})
	if err != nil {
		return "", fmt.Errorf("[keycloak BeginLogin] store flow: %w", err)
	}

	params := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("redirect_uri", redirectURI),
	}

	authConfig := *oauthConfig
	switch opts.Action {
	case "":
	case identity.ActionRegister:
		authConfig.Endpoint.AuthURL = identity.RegistrationsURL(c.cfg.GetAuthServerURL(), c.cfg.GetRealm())
	default:
		params = append(params, oauth2.SetAuthURLParam("kc_action", opts.Action))
	}

	return authConfig.AuthCodeURL(state, params...), nil
}

// CompleteLogin redeems the authorization code of a flow started by BeginLogin
func (c *Client) CompleteLogin(ctx context.Context, state, code string) (string, error) {
	oauthConfig, verifier, _ := c.oauth()
	if oauthConfig == nil {
		return "", errors.ErrNotInitialized
	}

	flow, err := c.flows.Take(state)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidState, err)
	}
	if flow.Expired(c.now(), c.cfg.GetAuthCodeTimeout()) {
		return "", fmt.Errorf("%w: login flow expired", errors.ErrInvalidState)
	}

	tok, err := oauthConfig.Exchange(
		c.httpContext(ctx),
		code,
		oauth2.VerifierOption(flow.CodeVerifier),
		oauth2.SetAuthURLParam("redirect_uri", flow.RedirectURI),
	)
	if err != nil {
		return "", fmt.Errorf("[keycloak CompleteLogin] token exchange: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", errors.ErrMissingIDToken
	}

	idToken, err := verifier.Verify(oidc.ClientContext(ctx, c.httpClient), rawIDToken)
	if err != nil {
		return "", fmt.Errorf("[keycloak CompleteLogin] id token verification: %w", err)
	}
	if idToken.Nonce != flow.Nonce {
		return "", errors.ErrNonceMismatch
	}

	c.lock.Lock()
	c.tokens = tokenSet(tok)
	c.tokens.IDToken = rawIDToken
	c.lock.Unlock()

	c.persistRefreshToken(ctx, tok.RefreshToken)
	c.notify()
	return flow.ReturnTo, nil
}

// Login runs the whole flow from a terminal: it listens on the loopback callback
// address, hands the authorization URL to the browser opener and waits.
func (c *Client) Login(ctx context.Context, opts identity.LoginOptions) error {
	if err := c.discover(ctx); err != nil {
		return err
	}

	cb, err := startCallbackServer(c.cfg.GetCallbackAddress(), c.cfg.GetCallbackPath())
	if err != nil {
		return fmt.Errorf("[keycloak Login] %w", err)
	}
	defer cb.Close()

	if opts.RedirectURI == "" {
		opts.RedirectURI = cb.RedirectURI()
	}
	authURL, err := c.BeginLogin(opts)
	if err != nil {
		return err
	}
	if err := c.openBrowser(authURL); err != nil {
		return fmt.Errorf("[keycloak Login] open browser: %w", err)
	}

	result, err := cb.Wait(ctx, c.cfg.GetCallbackTimeout())
	if err != nil {
		return err
	}
	_, err = c.CompleteLogin(ctx, result.State, result.Code)
	return err
}

// Register is Login on the registration page
func (c *Client) Register(ctx context.Context) error {
	return c.Login(ctx, identity.LoginOptions{Action: identity.ActionRegister})
}

func endSessionForm(cfg config.IdentityConfig, refreshToken string) url.Values {
	form := url.Values{}
	form.Set("client_id", cfg.GetClientID())
	if secret := cfg.GetClientSecret(); secret != "" {
		form.Set("client_secret", secret)
	}
	form.Set("refresh_token", refreshToken)
	return form
}
