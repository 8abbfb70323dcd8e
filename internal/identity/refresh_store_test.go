package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryRefreshTokenStore_Basics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()

	ok, err := store.Exists(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Store(ctx, "jti-1", "u1", 50*time.Millisecond))
	ok, err = store.Exists(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(70 * time.Millisecond)
	ok, err = store.Exists(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, ok, "expected token expired")
}

func TestMemoryRefreshTokenStore_RevokeAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()
	require.NoError(t, store.Store(ctx, "", "u1", time.Minute))
	require.NoError(t, store.Store(ctx, "jti-2", "u1", time.Minute))
	require.NoError(t, store.Revoke(ctx, "jti-2"))
	ok, err := store.Exists(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisRefreshTokenStore_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisRefreshTokenStore(client)

	require.NoError(t, store.Store(ctx, " j1 ", "u1", time.Minute))
	require.True(t, mr.Exists("auth:refresh:j1"))
	val, err := mr.Get("auth:refresh:j1")
	require.NoError(t, err)
	require.Equal(t, "u1", val)

	ok, err := store.Exists(ctx, "j1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = store.Exists(ctx, "j1")
	require.NoError(t, err)
	require.False(t, ok, "expected key to expire with its ttl")

	require.NoError(t, store.Store(ctx, "j2", "u1", 0))
	require.Greater(t, mr.TTL("auth:refresh:j2"), time.Duration(0), "expected positive ttl fallback")
	require.NoError(t, store.Revoke(ctx, "j2"))
	require.False(t, mr.Exists("auth:refresh:j2"))
}

type failingKV struct{}

func (failingKV) Set(ctx context.Context, _ string, _ interface{}, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetErr(errors.New("set failed"))
	return cmd
}

func (failingKV) Exists(ctx context.Context, _ ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetErr(errors.New("exists failed"))
	return cmd
}

func (failingKV) Del(ctx context.Context, _ ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetErr(errors.New("del failed"))
	return cmd
}

func TestRedisRefreshTokenStore_ErrorPathsAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	store := &redisRefreshTokenStore{client: failingKV{}, prefix: "auth:refresh:"}

	require.NoError(t, store.Store(ctx, "", "u1", time.Minute))
	ok, err := store.Exists(ctx, "")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, store.Revoke(ctx, ""))

	require.Error(t, store.Store(ctx, "j2", "u1", time.Minute))
	_, err = store.Exists(ctx, "j2")
	require.Error(t, err)
	require.Error(t, store.Revoke(ctx, "j2"))
}

func TestNewRedisRefreshTokenStore_NilClient(t *testing.T) {
	if NewRedisRefreshTokenStore(nil) != nil {
		t.Fatalf("expected nil store for nil client")
	}
}
