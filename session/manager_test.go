package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/identity/keycloaktest"
	"github.com/jrsteele09/restaurant-portal/identity/providerfake"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/jrsteele09/restaurant-portal/storage/storagefake"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fixture struct {
	realm    *keycloaktest.Server
	provider *providerfake.FakeProvider
	store    *storagefake.FakeStore
	manager  *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	realm := keycloaktest.NewServer(t, "test", "portal")
	realm.SetUser("user-1", map[string]any{
		"preferred_username": "jdoe",
		"given_name":         "John",
		"family_name":        "Doe",
		"email":              "jdoe@example.com",
		"birthdate":          "1990-05-01",
	})
	return newFixtureWithServer(t, realm, realm.URL)
}

func newFixtureWithServer(t *testing.T, realm *keycloaktest.Server, serverURL string) *fixture {
	t.Helper()

	provider := providerfake.NewFakeProvider(serverURL, "test")
	store := storagefake.NewFakeStore()

	var manager *session.Manager
	gw := gateway.New(store, func() string { return manager.Token() }, gateway.NewProviderRefresher(provider, store, nil))
	manager = session.New(provider, store, gw)
	t.Cleanup(manager.Close)

	return &fixture{realm: realm, provider: provider, store: store, manager: manager}
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	token := f.realm.IssueAccessToken("user-1")
	f.provider.SetRefreshToken(f.realm.IssueRefreshToken("user-1"))
	f.provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: token})
	return token
}

func (f *fixture) waitForUserInfo(t *testing.T) *session.UserInfo {
	t.Helper()
	require.Eventually(t, func() bool { return f.manager.Snapshot().UserInfo != nil }, waitFor, tick)
	return f.manager.Snapshot().UserInfo
}

func TestUnresolvedProviderDoesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(storage.KeyUserInfo, `{"id":"stale"}`)

	f.provider.Emit(identity.State{Initialized: false, Authenticated: true, Token: "t"})

	snap := f.manager.Snapshot()
	require.False(t, snap.Resolved)
	require.False(t, snap.LoggedIn)
	require.Empty(t, snap.Token)
	require.True(t, f.store.Has(storage.KeyUserInfo))
	require.Never(t, func() bool { return f.realm.UserInfoCalls() > 0 }, 50*time.Millisecond, tick)
}

func TestAuthenticatedFetchesUserInfo(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	snap := f.manager.Snapshot()
	require.True(t, snap.Resolved)
	require.True(t, snap.LoggedIn)
	require.Equal(t, token, snap.Token)

	info := f.waitForUserInfo(t)
	require.Equal(t, session.UserInfo{
		ID:        "user-1",
		Username:  "jdoe",
		FirstName: "John",
		LastName:  "Doe",
		Email:     "jdoe@example.com",
		FullName:  "John Doe",
		DOB:       "1990-05-01",
	}, *info)

	require.Eventually(t, func() bool { return f.store.Has(storage.KeyUserInfo) }, waitFor, tick)
	var mirrored session.UserInfo
	require.NoError(t, json.Unmarshal([]byte(f.store.Value(storage.KeyUserInfo)), &mirrored))
	require.Equal(t, *info, mirrored)
	require.Equal(t, token, f.store.Value(storage.KeyToken))

	persisted, err := f.manager.PersistedUserInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, info, persisted)
}

func TestUnauthenticatedClearsEverything(t *testing.T) {
	t.Run("after login", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.waitForUserInfo(t)
		require.Eventually(t, func() bool { return f.store.Has(storage.KeyUserInfo) }, waitFor, tick)

		f.provider.Emit(identity.State{Initialized: true})

		snap := f.manager.Snapshot()
		require.False(t, snap.LoggedIn)
		require.Nil(t, snap.UserInfo)
		require.Empty(t, snap.Token)
		require.False(t, f.store.Has(storage.KeyUserInfo))
		require.False(t, f.store.Has(storage.KeyToken))
	})

	t.Run("stale mirror at startup", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(storage.KeyUserInfo, `{"id":"stale"}`)
		f.store.Seed(storage.KeyToken, "stale-token")

		f.provider.Emit(identity.State{Initialized: true})

		snap := f.manager.Snapshot()
		require.True(t, snap.Resolved)
		require.False(t, snap.LoggedIn)
		require.Nil(t, snap.UserInfo)
		require.False(t, f.store.Has(storage.KeyUserInfo))
		require.False(t, f.store.Has(storage.KeyToken))
	})
}

func TestReauthenticationRefetches(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.waitForUserInfo(t)
	require.Eventually(t, func() bool { return f.realm.UserInfoCalls() == 1 }, waitFor, tick)

	f.realm.SetUser("user-1", map[string]any{"preferred_username": "jdoe", "name": "Johnny"})
	next := f.realm.IssueAccessToken("user-1")
	f.provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: next})

	require.Eventually(t, func() bool {
		info := f.manager.Snapshot().UserInfo
		return info != nil && info.FullName == "Johnny"
	}, waitFor, tick)
	require.Equal(t, next, f.manager.Token())
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.waitForUserInfo(t)
	ctx := context.Background()

	f.manager.Logout(ctx)
	first := f.manager.Snapshot()
	f.manager.Logout(ctx)
	second := f.manager.Snapshot()

	require.Equal(t, first, second)
	require.False(t, second.LoggedIn)
	require.Nil(t, second.UserInfo)
	require.Empty(t, second.Token)
	require.False(t, f.store.Has(storage.KeyUserInfo))
	require.False(t, f.store.Has(storage.KeyToken))
	require.Equal(t, 2, f.provider.LogoutCalls)
	require.False(t, f.provider.State().Authenticated)
}

func TestLogoutSurvivesStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.waitForUserInfo(t)

	f.store.SetErrors(nil, nil, errors.ErrUnsupported)
	f.manager.Logout(context.Background())

	snap := f.manager.Snapshot()
	require.False(t, snap.LoggedIn)
	require.Nil(t, snap.UserInfo)
	require.Equal(t, 1, f.provider.LogoutCalls)
}

func TestFetchFailureIsReturnedWithoutLogout(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"user info unavailable"}`))
	}))
	defer api.Close()

	f := newFixtureWithServer(t, keycloaktest.NewServer(t, "test", "portal"), api.URL)
	f.provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: "t"})

	_, err := f.manager.FetchUserInfo(context.Background())
	apiErr, ok := gateway.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)

	require.Eventually(t, func() bool { return f.manager.Snapshot().FetchErr != nil }, waitFor, tick)
	snap := f.manager.Snapshot()
	require.True(t, snap.LoggedIn)
	require.Equal(t, "t", snap.Token)
	require.Zero(t, f.provider.LogoutCalls)
}

func TestFetchUserInfo_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.FetchUserInfo(ctx)
	require.ErrorIs(t, err, errors.ErrNotInitialized)

	f.provider.Emit(identity.State{Initialized: true})
	_, err = f.manager.FetchUserInfo(ctx)
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestResultAfterLogoutIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"user-1","email":"late@example.com"}`))
	}))
	defer api.Close()

	f := newFixtureWithServer(t, keycloaktest.NewServer(t, "test", "portal"), api.URL)
	f.provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: "t"})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	f.manager.Logout(context.Background())
	close(release)

	require.Never(t, func() bool {
		return f.manager.Snapshot().UserInfo != nil || f.store.Has(storage.KeyUserInfo)
	}, 100*time.Millisecond, tick)
}

func TestRejectedFetchWithFailedRefreshLogsOut(t *testing.T) {
	f := newFixture(t)
	f.realm.FailRefresh(true)
	f.provider.SetRefreshToken("revoked")
	f.provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: "not-issued"})

	require.Eventually(t, func() bool { return f.provider.State().Authenticated == false }, waitFor, tick)
	require.Eventually(t, func() bool { return !f.manager.Snapshot().LoggedIn }, waitFor, tick)
	require.Equal(t, 1, f.realm.RefreshCalls())
	require.Equal(t, 1, f.realm.UserInfoCalls())
	require.False(t, f.store.Has(storage.KeyToken))
}

func TestRejectedFetchAfterRefreshDoesNotLoop(t *testing.T) {
	var userInfoCalls, tokenCalls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/token") {
			n := tokenCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"access_token":"fresh-%d","refresh_token":"r"}`, n)
			return
		}
		userInfoCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	f := newFixtureWithServer(t, keycloaktest.NewServer(t, "test", "portal"), api.URL)
	f.provider.SetRefreshToken("r")
	f.provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: "t"})

	require.Eventually(t, func() bool { return userInfoCalls.Load() == 2 }, waitFor, tick)
	require.Never(t, func() bool { return userInfoCalls.Load() > 2 }, 200*time.Millisecond, tick)
	require.Equal(t, int32(1), tokenCalls.Load())
	require.Equal(t, "fresh-1", f.manager.Token())
	require.True(t, f.manager.Snapshot().LoggedIn)
}

func TestCloseStopsObserving(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 1, f.provider.Observers())

	f.manager.Close()
	f.manager.Close()
	require.Zero(t, f.provider.Observers())

	f.provider.Emit(identity.State{Initialized: true, Authenticated: true, Token: "t"})
	require.False(t, f.manager.Snapshot().LoggedIn)
}
