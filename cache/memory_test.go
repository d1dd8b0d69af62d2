package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
)

func testProfile(userID id.UserID) *bastion.Profile {
	return &bastion.Profile{
		UserID: userID,
		Active: true,
		Grants: []bastion.ProfileGrant{{
			GrantID:     id.NewGrantID(),
			RoleID:      id.NewRoleID(),
			Role:        "ASSEK_VIEWER",
			Module:      "asekuracja",
			Permissions: []permission.Name{permission.View},
		}},
	}
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute), WithMaxSize(10))
	uid := id.NewUserID()

	v, err := c.Version(ctx, uid)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, uid, v)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, uid, v, testProfile(uid)))
	got, ok, err := c.Get(ctx, uid, v)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uid, got.UserID)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	a, b := id.NewUserID(), id.NewUserID()

	va, _ := c.Version(ctx, a)
	vb, _ := c.Version(ctx, b)
	require.NoError(t, c.Set(ctx, a, va, testProfile(a)))
	require.NoError(t, c.Set(ctx, b, vb, testProfile(b)))

	require.NoError(t, c.InvalidateUser(ctx, a))

	next, _ := c.Version(ctx, a)
	assert.NotEqual(t, va, next)
	_, ok, _ := c.Get(ctx, a, next)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, b, vb)
	assert.True(t, ok, "other users keep their entries")
}

func TestMemoryStaleSetDropped(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	uid := id.NewUserID()

	v, _ := c.Version(ctx, uid)
	// A mutation lands while the profile is being loaded.
	require.NoError(t, c.InvalidateUser(ctx, uid))
	require.NoError(t, c.Set(ctx, uid, v, testProfile(uid)))

	_, ok, _ := c.Get(ctx, uid, v)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestMemoryInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	uid := id.NewUserID()

	v, _ := c.Version(ctx, uid)
	require.NoError(t, c.Set(ctx, uid, v, testProfile(uid)))
	require.NoError(t, c.InvalidateAll(ctx))

	_, ok, _ := c.Get(ctx, uid, v)
	assert.False(t, ok)
	next, _ := c.Version(ctx, uid)
	assert.NotEqual(t, v, next)
}
