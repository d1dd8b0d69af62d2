package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion/id"
)

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, WithPrefix("test"), WithRedisTTL(time.Minute)), mr
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	uid := id.NewUserID()

	v, err := c.Version(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "0.0", v)

	_, ok, err := c.Get(ctx, uid, v)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, uid, v, testProfile(uid)))
	got, ok, err := c.Get(ctx, uid, v)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uid, got.UserID)
	require.Len(t, got.Grants, 1)
	assert.Equal(t, "asekuracja", got.Grants[0].Module)

	assert.True(t, mr.Exists("test:profile:"+uid.String()+":0.0"))
	assert.Equal(t, time.Minute, mr.TTL("test:profile:"+uid.String()+":0.0"))
}

func TestRedisInvalidation(t *testing.T) {
	ctx := context.Background()
	c, _ := setupRedis(t)
	a, b := id.NewUserID(), id.NewUserID()

	va, _ := c.Version(ctx, a)
	vb, _ := c.Version(ctx, b)
	require.NoError(t, c.Set(ctx, a, va, testProfile(a)))
	require.NoError(t, c.Set(ctx, b, vb, testProfile(b)))

	require.NoError(t, c.InvalidateUser(ctx, a))
	next, err := c.Version(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "0.1", next)
	_, ok, _ := c.Get(ctx, a, next)
	assert.False(t, ok)

	same, _ := c.Version(ctx, b)
	assert.Equal(t, vb, same)

	require.NoError(t, c.InvalidateAll(ctx))
	after, _ := c.Version(ctx, b)
	assert.Equal(t, "1.0", after)
	_, ok, _ = c.Get(ctx, b, after)
	assert.False(t, ok)
}

func TestRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	mr.Close()

	_, err := c.Version(ctx, id.NewUserID())
	assert.Error(t, err)
	assert.Error(t, c.InvalidateAll(ctx))
}
