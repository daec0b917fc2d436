package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/jrsteele09/restaurant-portal/storage/redisstore"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := redisstore.Dial(ctx, mr.Addr(), "", "portal:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, err := s.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, s.Set(ctx, storage.KeyToken, "tok"))
	raw, err := mr.Get("portal:" + storage.KeyToken)
	require.NoError(t, err)
	require.Equal(t, "tok", raw)

	v, err = s.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	require.Equal(t, "tok", v)

	require.NoError(t, s.Remove(ctx, storage.KeyToken))
	require.False(t, mr.Exists("portal:"+storage.KeyToken))
	require.NoError(t, s.Remove(ctx, storage.KeyToken))
}

func TestDial_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redisstore.Dial(context.Background(), addr, "", "portal:")
	require.Error(t, err)
}
