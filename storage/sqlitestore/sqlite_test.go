package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/jrsteele09/restaurant-portal/storage/sqlitestore"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dsn string) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetRemove(t *testing.T) {
	s := openStore(t, ":memory:")
	ctx := context.Background()

	v, err := s.Get(ctx, storage.KeyUserInfo)
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, s.Set(ctx, storage.KeyUserInfo, `{"id":"1"}`))
	require.NoError(t, s.Set(ctx, storage.KeyUserInfo, `{"id":"2"}`))

	v, err = s.Get(ctx, storage.KeyUserInfo)
	require.NoError(t, err)
	require.Equal(t, `{"id":"2"}`, v)

	require.NoError(t, s.Remove(ctx, storage.KeyUserInfo))
	require.NoError(t, s.Remove(ctx, storage.KeyUserInfo))

	v, err = s.Get(ctx, storage.KeyUserInfo)
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestValuesSurviveReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "portal.db")
	ctx := context.Background()

	first, err := sqlitestore.Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, storage.KeyToken, "tok"))
	require.NoError(t, first.Close())

	second := openStore(t, dsn)
	v, err := second.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	require.Equal(t, "tok", v)
}
