package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/user"
)

func TestPluginCountsEngineActivity(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p, err := New(reg)
	require.NoError(t, err)

	eng, err := bastion.NewEngine(bastion.WithStore(memory.New()), bastion.WithPlugin(p))
	require.NoError(t, err)
	require.NoError(t, eng.RegisterModule(ctx, &module.Module{
		Name: "asekuracja", Permissions: []permission.Name{permission.View, permission.Edit},
	}))
	r, err := eng.CreateRole(ctx, "ASSEK_VIEWER", "asekuracja", []permission.Name{permission.View}, false)
	require.NoError(t, err)
	u := &user.User{Login: "metered", IsActive: true}
	require.NoError(t, eng.CreateUser(ctx, u))

	_, err = eng.GrantRole(ctx, u.ID, r.ID, bastion.ID{})
	require.NoError(t, err)
	_, err = eng.HasPermission(ctx, u.ID, "asekuracja", permission.View)
	require.NoError(t, err)
	_, err = eng.HasPermission(ctx, u.ID, "asekuracja", permission.Edit)
	require.NoError(t, err)
	require.NoError(t, eng.RevokeRole(ctx, u.ID, r.ID))

	assert.InDelta(t, 1, testutil.ToFloat64(p.checks.WithLabelValues("asekuracja", "VIEW", "allow")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.checks.WithLabelValues("asekuracja", "EDIT", "deny_no_permission")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.grants.WithLabelValues("grant")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.grants.WithLabelValues("revoke")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.roleChanges.WithLabelValues("create")), 0)
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
