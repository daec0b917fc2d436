package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "REALM", "CLIENT_ID", "SCOPES", "API_URL", "REFRESH_DEDUP", "STORAGE_DRIVER", "MIN_TOKEN_VALIDITY"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "restaurant-realm", c.GetRealm())
	require.Equal(t, "restaurant-customer", c.GetClientID())
	require.Equal(t, []string{"openid", "profile", "email"}, c.GetScopes())
	require.Equal(t, "http://localhost:8080", c.GetAPIBaseURL())
	require.False(t, c.GetRefreshDeduplication())
	require.Equal(t, config.StorageSQLite, c.GetStorageDriver())
	require.Equal(t, 30*time.Second, c.GetMinTokenValidity())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("AUTH_SERVER_URL", "http://kc.local/")
	t.Setenv("REFRESH_DEDUP", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.local, http://b.local")
	c := config.New()

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "http://kc.local", c.GetAuthServerURL())
	require.True(t, c.GetRefreshDeduplication())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://b.local"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("http://c.local"))
}

func TestLoadFile(t *testing.T) {
	t.Setenv("REALM", "from-env")
	t.Setenv("CLIENT_ID", "")
	path := filepath.Join(t.TempDir(), "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("REALM: from-file\nCLIENT_ID: file-client\n"), 0o600))

	require.NoError(t, config.LoadFile(path))

	c := config.New()
	require.Equal(t, "from-env", c.GetRealm())
	require.Equal(t, "file-client", c.GetClientID())
}

func TestLoadFile_Missing(t *testing.T) {
	err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
