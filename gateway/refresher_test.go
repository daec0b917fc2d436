package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/identity/keycloaktest"
	"github.com/jrsteele09/restaurant-portal/identity/providerfake"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/stretchr/testify/require"
)

func newRealmProvider(t *testing.T) (*keycloaktest.Server, *providerfake.FakeProvider) {
	t.Helper()
	realm := keycloaktest.NewServer(t, "test", "portal")
	provider := providerfake.NewFakeProvider(realm.URL, "test")
	provider.Client = "portal"
	provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: "stale"})
	return realm, provider
}

func TestProviderRefresher_Success(t *testing.T) {
	realm, provider := newRealmProvider(t)
	provider.SetRefreshToken(realm.IssueRefreshToken("user-1"))
	store := storage.NewInMemoryStore()
	ctx := context.Background()

	token, err := gateway.NewProviderRefresher(provider, store, nil).Refresh(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	form := realm.LastRefreshForm()
	require.Equal(t, "portal", form.Get("client_id"))
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "openid profile email", form.Get("scope"))

	require.Len(t, provider.SetTokensCalls, 1)
	require.Equal(t, token, provider.SetTokensCalls[0].AccessToken)
	require.NotEmpty(t, provider.SetTokensCalls[0].IDToken)
	require.Equal(t, token, provider.State().Token)

	stored, err := store.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	require.Equal(t, token, stored)
	require.Zero(t, provider.LogoutCalls)
}

func TestProviderRefresher_RejectedLogsOut(t *testing.T) {
	realm, provider := newRealmProvider(t)
	provider.SetRefreshToken(realm.IssueRefreshToken("user-1"))
	realm.FailRefresh(true)

	token, err := gateway.NewProviderRefresher(provider, storage.NewInMemoryStore(), nil).Refresh(context.Background())
	require.Empty(t, token)
	require.ErrorIs(t, err, errors.ErrRefreshFailed)

	var oauthErr *identity.OAuthError
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, "invalid_grant", oauthErr.Code)
	require.Equal(t, 1, provider.LogoutCalls)
	require.False(t, provider.State().Authenticated)
}

func TestProviderRefresher_NoRefreshTokenLogsOut(t *testing.T) {
	_, provider := newRealmProvider(t)

	token, err := gateway.NewProviderRefresher(provider, storage.NewInMemoryStore(), nil).Refresh(context.Background())
	require.Empty(t, token)
	require.ErrorIs(t, err, errors.ErrNoRefreshToken)
	require.Equal(t, 1, provider.LogoutCalls)
	require.Empty(t, provider.SetTokensCalls)
}

func TestGateway_RefreshFailureLogsOutProvider(t *testing.T) {
	realm, provider := newRealmProvider(t)
	provider.SetRefreshToken(realm.IssueRefreshToken("user-1"))
	realm.FailRefresh(true)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	store := storage.NewInMemoryStore()
	g := gateway.New(store, func() string { return provider.State().Token }, gateway.NewProviderRefresher(provider, store, nil))

	_, err := g.Get(context.Background(), api.URL, gateway.Options{})
	apiErr, ok := gateway.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.ErrorIs(t, err, errors.ErrSessionExpired)
	require.Equal(t, 1, provider.LogoutCalls)
	require.Equal(t, 1, realm.RefreshCalls())
}

type afterTransport func()

func (f afterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	f()
	return resp, err
}

func TestProviderRefresher_DiscardsTokensAfterLogout(t *testing.T) {
	realm, provider := newRealmProvider(t)
	provider.SetRefreshToken(realm.IssueRefreshToken("user-1"))
	ctx := context.Background()
	store := storage.NewInMemoryStore()

	hc := &http.Client{Transport: afterTransport(func() { _ = provider.Logout(ctx) })}
	token, err := gateway.NewProviderRefresher(provider, store, hc).Refresh(ctx)
	require.NoError(t, err)
	require.Empty(t, token)

	require.False(t, provider.State().Authenticated)
	require.Empty(t, provider.RefreshToken())
	stored, err := store.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestProviderRefresher_ConcurrentRefreshWins(t *testing.T) {
	realm, provider := newRealmProvider(t)
	provider.SetRefreshToken(realm.IssueRefreshToken("user-1"))
	ctx := context.Background()

	hc := &http.Client{Transport: afterTransport(func() {
		provider.SetRefreshToken("rotated")
		provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: "winner"})
	})}
	token, err := gateway.NewProviderRefresher(provider, storage.NewInMemoryStore(), hc).Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "winner", token)
	require.Equal(t, "rotated", provider.RefreshToken())
	require.Zero(t, provider.LogoutCalls)
}
