package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/rs/zerolog/log"
)

// Refresher obtains a new access credential. An empty token means the session
// cannot be continued.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

const refreshScope = "openid profile email"

// ProviderRefresher runs the refresh-token grant against the provider's token
// endpoint. Any failure logs the provider out.
type ProviderRefresher struct {
	provider   identity.Provider
	store      storage.Store
	httpClient *http.Client
	now        func() time.Time
}

func NewProviderRefresher(provider identity.Provider, store storage.Store, httpClient *http.Client) *ProviderRefresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProviderRefresher{
		provider:   provider,
		store:      store,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Refresh discards the refreshed tokens when the session changed while the grant
// was in flight. It then returns the provider's current credential, which is ""
// after a logout.
func (r *ProviderRefresher) Refresh(ctx context.Context) (string, error) {
	log.Debug().Msg("Refreshing access token")

	exchanged, tokens, err := r.exchange(ctx)
	if err != nil {
		log.Err(err).Msg("Failed to refresh access token")
		if logoutErr := r.provider.Logout(ctx); logoutErr != nil {
			log.Err(logoutErr).Msg("Logout after failed refresh")
		}
		return "", err
	}

	if err := r.provider.SetTokens(ctx, exchanged, tokens); err != nil {
		if errors.Is(err, errors.ErrSessionChanged) {
			// another refresh or a logout won; retry with whatever the provider holds now
			log.Info().Msg("Session changed during refresh, discarding refreshed tokens")
			return r.provider.State().Token, nil
		}
		log.Warn().Err(err).Msg("Provider could not persist refreshed tokens")
	}
	if err := r.store.Set(ctx, storage.KeyToken, tokens.AccessToken); err != nil {
		log.Warn().Err(err).Msg("Failed to store refreshed access token")
	}

	// a logout that cleared the mirror before the write above leaves the provider unauthenticated
	if !r.provider.State().Authenticated {
		if err := r.store.Remove(ctx, storage.KeyToken); err != nil {
			log.Warn().Err(err).Msg("Failed to remove refreshed access token")
		}
		log.Info().Msg("Session ended during refresh, discarding refreshed tokens")
		return "", nil
	}

	log.Debug().Msg("Access token refreshed")
	return tokens.AccessToken, nil
}

func (r *ProviderRefresher) exchange(ctx context.Context) (string, identity.TokenSet, error) {
	refreshToken := r.provider.RefreshToken()
	if refreshToken == "" {
		return "", identity.TokenSet{}, errors.ErrNoRefreshToken
	}

	form := url.Values{}
	form.Set("client_id", r.provider.ClientID())
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("scope", refreshScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, identity.TokenURLFor(r.provider), strings.NewReader(form.Encode()))
	if err != nil {
		return "", identity.TokenSet{}, fmt.Errorf("[ProviderRefresher] build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", identity.TokenSet{}, fmt.Errorf("%w: %v", errors.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		oauthErr := &identity.OAuthError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(oauthErr)
		return "", identity.TokenSet{}, errors.Join(errors.ErrRefreshFailed, oauthErr)
	}

	var body identity.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", identity.TokenSet{}, fmt.Errorf("%w: decode token response: %v", errors.ErrRefreshFailed, err)
	}
	if body.AccessToken == "" {
		return "", identity.TokenSet{}, fmt.Errorf("%w: token response has no access_token", errors.ErrRefreshFailed)
	}
	return refreshToken, body.TokenSet(r.now()), nil
}
