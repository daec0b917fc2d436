package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/restaurant-portal/identity/keycloaktest"
	"github.com/jrsteele09/restaurant-portal/internal/app"
	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/stretchr/testify/require"
)

func setIdentityEnv(t *testing.T, realm *keycloaktest.Server) {
	t.Helper()
	t.Setenv("AUTH_SERVER_URL", realm.URL)
	t.Setenv("REALM", "test")
	t.Setenv("CLIENT_ID", "portal")
	t.Setenv("CLIENT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("STORAGE_PASSPHRASE", "")
	t.Setenv("ENV", "TEST")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("STORAGE_PASSPHRASE", "")
		store, closer, err := app.OpenStore(ctx, config.Storage{})
		require.NoError(t, err)
		require.IsType(t, &storage.InMemoryStore{}, store)
		require.NoError(t, closer.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "sqlite")
		t.Setenv("STORAGE_PASSPHRASE", "")
		t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "nested", "portal.db"))
		store, closer, err := app.OpenStore(ctx, config.Storage{})
		require.NoError(t, err)
		defer closer.Close()

		require.NoError(t, store.Set(ctx, storage.KeyUserInfo, "{}"))
		v, err := store.Get(ctx, storage.KeyUserInfo)
		require.NoError(t, err)
		require.Equal(t, "{}", v)
	})

	t.Run("redis encrypted", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Setenv("STORAGE_DRIVER", "redis")
		t.Setenv("REDIS_ADDR", mr.Addr())
		t.Setenv("REDIS_PREFIX", "test:")
		t.Setenv("STORAGE_PASSPHRASE", "correct horse")
		store, closer, err := app.OpenStore(ctx, config.Storage{})
		require.NoError(t, err)
		defer closer.Close()

		require.NoError(t, store.Set(ctx, storage.KeyToken, "secret-token"))
		raw, err := mr.Get("test:" + storage.KeyToken)
		require.NoError(t, err)
		require.NotContains(t, raw, "secret-token")

		v, err := store.Get(ctx, storage.KeyToken)
		require.NoError(t, err)
		require.Equal(t, "secret-token", v)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "etcd")
		_, _, err := app.OpenStore(ctx, config.Storage{})
		require.ErrorContains(t, err, `unknown storage driver "etcd"`)
		require.ErrorIs(t, err, errors.ErrUnsupported)
	})
}

func TestApp_InitWithoutSession(t *testing.T) {
	realm := keycloaktest.NewServer(t, "test", "portal")
	setIdentityEnv(t, realm)
	ctx := context.Background()

	a, err := app.New(ctx, config.New())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	require.False(t, a.Session.Snapshot().Resolved)
	require.NoError(t, a.Init(ctx))

	snapshot := a.Session.Snapshot()
	require.True(t, snapshot.Resolved)
	require.False(t, snapshot.LoggedIn)
}

func TestApp_RestoresSessionAndFetchesUserInfo(t *testing.T) {
	realm := keycloaktest.NewServer(t, "test", "portal")
	setIdentityEnv(t, realm)
	ctx := context.Background()

	store := storage.NewInMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, realm.IssueRefreshToken("user-1")))

	a, err := app.New(ctx, config.New(), app.WithStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	require.NoError(t, a.Init(ctx))

	require.True(t, a.Session.Snapshot().LoggedIn)
	require.Eventually(t, func() bool { return a.Session.Snapshot().UserInfo != nil }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "jdoe", a.Session.Snapshot().UserInfo.Username)

	mirrored, err := store.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	require.Equal(t, a.Session.Token(), mirrored)
}

func TestApp_ServerServesSession(t *testing.T) {
	realm := keycloaktest.NewServer(t, "test", "portal")
	setIdentityEnv(t, realm)
	ctx := context.Background()

	a, err := app.New(ctx, config.New())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	require.NoError(t, a.Init(ctx))

	s, err := a.NewServer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), realm.Issuer()+"/protocol/openid-connect/auth"))
}
