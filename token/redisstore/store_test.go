package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/portfolio-auth/token/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestRedisStore_SetReadClear(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := redisstore.New(rdb, "portfolio:credentials", "alice")

	require.NoError(t, s.Set(ctx, "A1", "R1"))
	require.Equal(t, "A1", mr.HGet("portfolio:credentials:alice", "access_token"))

	access, ok := s.Access(ctx)
	require.True(t, ok)
	require.Equal(t, "A1", access)
	refresh, ok := s.Refresh(ctx)
	require.True(t, ok)
	require.Equal(t, "R1", refresh)

	require.NoError(t, s.Clear(ctx))
	require.False(t, mr.Exists("portfolio:credentials:alice"))
	_, ok = s.Access(ctx)
	require.False(t, ok)
}

func TestRedisStore_UnavailableReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := redisstore.New(rdb, "p", "")
	require.NoError(t, s.Set(ctx, "A1", "R1"))

	mr.Close()

	_, ok := s.Access(ctx)
	require.False(t, ok)
	require.Error(t, s.Set(ctx, "A2", "R2"))
}
