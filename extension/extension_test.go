package extension

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion/cache"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/store/memory"
)

func TestStartSeedsCatalog(t *testing.T) {
	ctx := context.Background()
	ext := New(WithStore(memory.New()), WithConfig(Config{SeedCatalog: true, CacheSize: 100}))
	require.NoError(t, ext.init())
	require.NoError(t, ext.Start(ctx))
	t.Cleanup(func() { _ = ext.Stop(ctx) })

	mods, err := ext.Engine().ListModules(ctx)
	require.NoError(t, err)
	assert.Len(t, mods, 4)

	assert.Equal(t, []permission.Name{permission.View},
		ext.Engine().Config().Equivalences["asekuracja"][permission.ViewList])
	require.NoError(t, ext.Health(ctx))
}

func TestEngineConfigMapping(t *testing.T) {
	ext := New(WithConfig(Config{CacheTTL: time.Minute, MaxHierarchyDepth: 3, AuditAllowedChecks: true}))
	cfg := ext.engineConfig()
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.MaxHierarchyDepth)
	assert.True(t, cfg.AuditAllowedChecks)
	assert.Nil(t, ext.buildCache(), "no cache without size or redis")
}

func TestBuildCache(t *testing.T) {
	ext := New(WithConfig(Config{CacheSize: 10}))
	assert.IsType(t, &cache.Memory{}, ext.buildCache())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ext = New(WithRedis(client))
	assert.IsType(t, &cache.Redis{}, ext.buildCache())
}

func TestInitRequiresStore(t *testing.T) {
	ext := New()
	assert.Error(t, ext.init())
	assert.Error(t, ext.Start(context.Background()))
	assert.NoError(t, ext.Stop(context.Background()))
}
