package bastion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/user"
)

// countingStore counts profile loads and can be told to fail them.
type countingStore struct {
	store.Store
	loads   atomic.Int64
	failErr error
}

func (c *countingStore) ListActiveGrants(ctx context.Context, userID id.UserID) ([]*grant.Grant, error) {
	c.loads.Add(1)
	if c.failErr != nil {
		return nil, c.failErr
	}
	return c.Store.ListActiveGrants(ctx, userID)
}

type fixture struct {
	eng   *Engine
	store *countingStore
	admin id.UserID

	viewer, editor, list, sysAdmin *role.Role
	eqViewer, eqList, empViewer    *role.Role
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	cs := &countingStore{Store: memory.New()}
	eng, err := NewEngine(append([]Option{WithStore(cs)}, opts...)...)
	require.NoError(t, err)

	mods := []*module.Module{
		{Name: "equipment", DisplayName: "Sprzęt", Icon: "box", SortOrder: 1, Permissions: []permission.Name{
			permission.View, permission.ViewList, permission.Create, permission.Edit, permission.Delete,
			permission.Assign, permission.Transfer, permission.Export,
		}},
		{Name: "asekuracja", DisplayName: "Asekuracja", Icon: "harness", SortOrder: 2, Permissions: []permission.Name{
			permission.View, permission.ViewList, permission.Create, permission.Edit, permission.Delete,
			permission.Assign, permission.Review, permission.Transfer,
		}},
		{Name: "employees", DisplayName: "Pracownicy", Icon: "users", SortOrder: 3, Permissions: []permission.Name{
			permission.EmployeesView, permission.EmployeesEdit, permission.EmployeesEditFull,
		}},
		{Name: "admin", DisplayName: "Administracja", Icon: "gear", SortOrder: 4, Permissions: []permission.Name{
			permission.View, permission.Edit,
		}},
	}
	for _, m := range mods {
		require.NoError(t, eng.RegisterModule(ctx, m))
	}

	f := &fixture{eng: eng, store: cs}
	mk := func(name, mod string, system bool, perms ...permission.Name) *role.Role {
		r, err := eng.CreateRole(ctx, name, mod, perms, system)
		require.NoError(t, err)
		return r
	}
	f.viewer = mk("ASSEK_VIEWER", "asekuracja", false, permission.View)
	f.editor = mk("ASSEK_EDITOR", "asekuracja", false,
		permission.View, permission.Create, permission.Edit, permission.Assign, permission.Review, permission.Transfer)
	f.list = mk("ASSEK_LIST", "asekuracja", false, permission.ViewList)
	f.sysAdmin = mk("system_admin", "admin", true, permission.View, permission.Edit)
	f.eqViewer = mk("EQUIPMENT_VIEWER", "equipment", false, permission.View)
	f.eqList = mk("EQUIPMENT_LIST", "equipment", false, permission.ViewList)
	f.empViewer = mk("EMPLOYEES_VIEWER", "employees", false, permission.EmployeesView)

	f.admin = f.newUser(t, "admin")
	return f
}

func (f *fixture) newUser(t *testing.T, login string) id.UserID {
	t.Helper()
	u := &user.User{Login: login, DisplayName: login, IsActive: true}
	require.NoError(t, f.eng.CreateUser(context.Background(), u))
	return u.ID
}

func (f *fixture) grant(t *testing.T, userID id.UserID, roles ...*role.Role) {
	t.Helper()
	for _, r := range roles {
		_, err := f.eng.GrantRole(context.Background(), userID, r.ID, f.admin)
		require.NoError(t, err)
	}
}

func (f *fixture) has(t *testing.T, userID id.UserID, mod string, perm permission.Name) bool {
	t.Helper()
	ok, err := f.eng.HasPermission(context.Background(), userID, mod, perm)
	require.NoError(t, err)
	return ok
}

func allPermissions() []permission.Name {
	return []permission.Name{
		permission.View, permission.ViewList, permission.Create, permission.Edit, permission.Delete,
		permission.Assign, permission.Review, permission.Transfer, permission.Export,
		permission.EmployeesView, permission.EmployeesEdit, permission.EmployeesEditFull,
	}
}

var moduleNames = []string{"equipment", "asekuracja", "employees", "admin"}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	require.Error(t, err)
}

func TestNoGrantNoAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "nobody")

	for _, m := range moduleNames {
		for _, p := range allPermissions() {
			assert.False(t, f.has(t, u, m, p), "%s/%s", m, p)
		}
		ok, err := f.eng.HasModuleAccess(ctx, u, m)
		require.NoError(t, err)
		assert.False(t, ok)

		perms, err := f.eng.GetAllPermissions(ctx, u, m)
		require.NoError(t, err)
		assert.Empty(t, perms)
	}
	mods, err := f.eng.GetUserModules(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, mods)

	d, err := f.eng.Evaluate(ctx, u, "asekuracja", permission.View)
	require.NoError(t, err)
	assert.Equal(t, DecisionDenyNoGrants, d.Code)
}

func TestUnionOfRolesInModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.eng.CreateRole(ctx, "EQ_EDIT", "equipment", []permission.Name{permission.Edit}, false)
	require.NoError(t, err)
	b, err := f.eng.CreateRole(ctx, "EQ_ASSIGN", "equipment", []permission.Name{permission.Assign}, false)
	require.NoError(t, err)

	u := f.newUser(t, "union")
	f.grant(t, u, a, b)

	assert.True(t, f.has(t, u, "equipment", permission.Edit))
	assert.True(t, f.has(t, u, "equipment", permission.Assign))
	for _, p := range allPermissions() {
		if p == permission.Edit || p == permission.Assign {
			continue
		}
		assert.False(t, f.has(t, u, "equipment", p), p)
	}

	// Grants in one module contribute nothing to another.
	assert.False(t, f.has(t, u, "asekuracja", permission.Edit))

	d, err := f.eng.Evaluate(ctx, u, "asekuracja", permission.Edit)
	require.NoError(t, err)
	assert.Equal(t, DecisionDenyNoModuleGrants, d.Code)
}

func TestRevokeRemovesAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "revoke")

	f.grant(t, u, f.editor)
	assert.True(t, f.has(t, u, "asekuracja", permission.Create))

	require.NoError(t, f.eng.RevokeRole(ctx, u, f.editor.ID))
	for _, p := range f.editor.Permissions {
		assert.False(t, f.has(t, u, "asekuracja", p), p)
	}

	// Revoking again is a no-op.
	require.NoError(t, f.eng.RevokeRole(ctx, u, f.editor.ID))
}

func TestReactivationKeepsOneActiveGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "reactivate")

	first, err := f.eng.GrantRole(ctx, u, f.viewer.ID, f.admin)
	require.NoError(t, err)
	require.NoError(t, f.eng.RevokeRole(ctx, u, f.viewer.ID))
	again, err := f.eng.GrantRole(ctx, u, f.viewer.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	same, err := f.eng.GrantRole(ctx, u, f.viewer.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, first.ID, same.ID)

	active, err := f.eng.ListGrants(ctx, u, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	history, err := f.eng.ListGrants(ctx, u, true)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGrantRoleUnknownIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "unknown")

	_, err := f.eng.GrantRole(ctx, u, id.NewRoleID(), f.admin)
	assert.ErrorIs(t, err, ErrRoleNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.eng.GrantRole(ctx, id.NewUserID(), f.viewer.ID, f.admin)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.eng.GrantRole(ctx, id.Nil, f.viewer.ID, f.admin)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReplaceRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "replace")
	f.grant(t, u, f.viewer, f.eqViewer)

	grants, err := f.eng.ReplaceRoles(ctx, u, []id.RoleID{f.editor.ID, f.empViewer.ID, f.editor.ID}, f.admin)
	require.NoError(t, err)
	assert.Len(t, grants, 2)

	active, err := f.eng.ListGrants(ctx, u, false)
	require.NoError(t, err)
	held := map[id.RoleID]bool{}
	for _, g := range active {
		held[g.RoleID] = true
	}
	assert.Equal(t, map[id.RoleID]bool{f.editor.ID: true, f.empViewer.ID: true}, held)

	assert.False(t, f.has(t, u, "equipment", permission.View))
	assert.True(t, f.has(t, u, "asekuracja", permission.Create))

	_, err = f.eng.ReplaceRoles(ctx, u, nil, f.admin)
	require.NoError(t, err)
	active, err = f.eng.ListGrants(ctx, u, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.False(t, f.has(t, u, "asekuracja", permission.View))
}

func TestReplaceRolesUnknownRoleChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "replace-unknown")
	f.grant(t, u, f.viewer)

	_, err := f.eng.ReplaceRoles(ctx, u, []id.RoleID{f.editor.ID, id.NewRoleID()}, f.admin)
	require.ErrorIs(t, err, ErrRoleNotFound)

	active, err := f.eng.ListGrants(ctx, u, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.viewer.ID, active[0].RoleID)
}

func TestReplaceRolesReadersSeeWholeStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "atomic")
	f.grant(t, u, f.viewer)

	before := permission.NewSet(permission.View)
	after := f.editor.PermissionSet()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got, err := f.eng.GetAllPermissions(ctx, u, "asekuracja")
				if err != nil {
					errs <- err
					return
				}
				if !got.Equal(before) && !got.Equal(after) {
					errs <- fmt.Errorf("observed partial state %v", got.Sorted())
					return
				}
			}
		}()
	}

	for i := range 50 {
		target := f.editor.ID
		if i%2 == 1 {
			target = f.viewer.ID
		}
		_, err := f.eng.ReplaceRoles(ctx, u, []id.RoleID{target}, f.admin)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEquivalenceViewList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "lister")
	f.grant(t, u, f.list, f.eqList)

	assert.True(t, f.has(t, u, "asekuracja", permission.ViewList))
	assert.True(t, f.has(t, u, "asekuracja", permission.View))
	assert.False(t, f.has(t, u, "asekuracja", permission.Edit))

	d, err := f.eng.Evaluate(ctx, u, "asekuracja", permission.View)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowEquivalent, d.Code)
	assert.Equal(t, permission.ViewList, d.Equivalent)
	assert.Equal(t, []string{"ASSEK_LIST"}, d.MatchedRoles)

	// The shipped rule is scoped to asekuracja.
	assert.True(t, f.has(t, u, "equipment", permission.ViewList))
	assert.False(t, f.has(t, u, "equipment", permission.View))

	raw, err := f.eng.GetAllPermissions(ctx, u, "asekuracja")
	require.NoError(t, err)
	assert.Equal(t, []permission.Name{permission.ViewList}, raw.Sorted())

	eff, err := f.eng.EffectivePermissions(ctx, u, "asekuracja")
	require.NoError(t, err)
	assert.True(t, eff.Equal(permission.NewSet(permission.View, permission.ViewList)))
}

func TestEquivalenceConfigurable(t *testing.T) {
	eq := Equivalences{}
	eq.Add(AnyModule, permission.ViewList, permission.View)
	f := newFixture(t, WithEquivalences(eq))
	u := f.newUser(t, "lister")
	f.grant(t, u, f.eqList)
	assert.True(t, f.has(t, u, "equipment", permission.View))

	off := newFixture(t, WithEquivalences(nil))
	v := off.newUser(t, "lister")
	off.grant(t, v, off.list)
	assert.False(t, off.has(t, v, "asekuracja", permission.View))
}

func TestSupervisorCycleRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.newUser(t, "a"), f.newUser(t, "b"), f.newUser(t, "c")

	require.NoError(t, f.eng.SetSupervisor(ctx, a, b))
	err := f.eng.SetSupervisor(ctx, b, a)
	require.ErrorIs(t, err, ErrSupervisorCycle)
	assert.Equal(t, fault.InvalidArgument, fault.KindOf(err))

	require.NoError(t, f.eng.SetSupervisor(ctx, b, c))
	assert.ErrorIs(t, f.eng.SetSupervisor(ctx, c, a), ErrSupervisorCycle)
	assert.ErrorIs(t, f.eng.SetSupervisor(ctx, a, a), ErrSelfSupervisor)
	assert.ErrorIs(t, f.eng.SetSupervisor(ctx, a, id.NewUserID()), ErrUserNotFound)

	ok, err := f.eng.IsSubordinate(ctx, c, a, true)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.eng.IsSubordinate(ctx, c, a, false)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.eng.ClearSupervisor(ctx, b))
	require.NoError(t, f.eng.SetSupervisor(ctx, c, a))
}

func TestHierarchyDepthLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHierarchyDepth = 2
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()
	a, b, c, d := f.newUser(t, "a"), f.newUser(t, "b"), f.newUser(t, "c"), f.newUser(t, "d")

	require.NoError(t, f.eng.SetSupervisor(ctx, a, b))
	require.NoError(t, f.eng.SetSupervisor(ctx, b, c))
	assert.ErrorIs(t, f.eng.SetSupervisor(ctx, d, a), ErrHierarchyTooDeep)
}

func TestFindSubordinates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boss := f.newUser(t, "boss")
	zed := &user.User{Login: "zed", DisplayName: "Zenon", IsActive: true}
	ala := &user.User{Login: "ala", DisplayName: "Alicja", IsActive: true}
	require.NoError(t, f.eng.CreateUser(ctx, zed))
	require.NoError(t, f.eng.CreateUser(ctx, ala))
	require.NoError(t, f.eng.SetSupervisor(ctx, zed.ID, boss))
	require.NoError(t, f.eng.SetSupervisor(ctx, ala.ID, boss))

	subs, err := f.eng.FindSubordinates(ctx, boss)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Alicja", subs[0].DisplayName)
	assert.Equal(t, "Zenon", subs[1].DisplayName)

	// Hierarchy grants no permissions.
	assert.False(t, f.has(t, boss, "employees", permission.EmployeesView))
}

func TestModuleVisibilityMatchesAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "visibility")
	f.grant(t, u, f.empViewer, f.viewer, f.sysAdmin)

	mods, err := f.eng.GetUserModules(ctx, u)
	require.NoError(t, err)
	visible := map[string]bool{}
	var order []string
	for _, m := range mods {
		visible[m.Module] = true
		order = append(order, m.Module)
	}
	assert.Equal(t, []string{"asekuracja", "employees", "admin"}, order)
	assert.Equal(t, "Asekuracja", mods[0].DisplayName)
	assert.Equal(t, "harness", mods[0].Icon)

	for _, m := range moduleNames {
		ok, err := f.eng.HasModuleAccess(ctx, u, m)
		require.NoError(t, err)
		assert.Equal(t, ok, visible[m], m)
	}
}

func TestAsekuracjaScenario(t *testing.T) {
	f := newFixture(t)
	x := f.newUser(t, "x")
	f.grant(t, x, f.viewer)

	assert.False(t, f.has(t, x, "asekuracja", permission.Create))
	assert.True(t, f.has(t, x, "asekuracja", permission.View))

	f.grant(t, x, f.editor)
	assert.True(t, f.has(t, x, "asekuracja", permission.Create))
}

func TestHasAnyPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "any")
	f.grant(t, u, f.viewer)

	loads := f.store.loads.Load()
	ok, err := f.eng.HasAnyPermission(ctx, u, "asekuracja", permission.Delete, permission.Edit, permission.View)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, loads+1, f.store.loads.Load(), "one profile load per call")

	ok, err = f.eng.HasAnyPermission(ctx, u, "asekuracja", permission.Delete, permission.Edit)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.eng.HasAnyPermission(ctx, u, "asekuracja")
	assert.ErrorIs(t, err, ErrEmptyPermission)
}

func TestRequestScopeDroppedOnMutation(t *testing.T) {
	f := newFixture(t)
	ctx := WithRequestScope(context.Background())
	u := f.newUser(t, "scoped")

	check := func() bool {
		ok, err := f.eng.HasPermission(ctx, u, "asekuracja", permission.View)
		require.NoError(t, err)
		return ok
	}
	assert.False(t, check())
	loads := f.store.loads.Load()
	assert.False(t, check())
	assert.Equal(t, loads, f.store.loads.Load())

	_, err := f.eng.GrantRole(ctx, u, f.viewer.ID, f.admin)
	require.NoError(t, err)
	assert.True(t, check())
}

func TestInvalidArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "args")

	_, err := f.eng.HasPermission(ctx, u, "", permission.View)
	assert.ErrorIs(t, err, ErrMissingModule)
	_, err = f.eng.HasPermission(ctx, u, "warehouse", permission.View)
	assert.ErrorIs(t, err, ErrUnknownModule)
	assert.Equal(t, fault.InvalidArgument, fault.KindOf(err))
	_, err = f.eng.HasPermission(ctx, u, "asekuracja", "  ")
	assert.ErrorIs(t, err, ErrEmptyPermission)
	_, err = f.eng.HasPermission(ctx, id.Nil, "asekuracja", permission.View)
	assert.ErrorIs(t, err, ErrMissingUser)
	_, err = f.eng.HasPermission(ctx, id.NewUserID(), "asekuracja", permission.View)
	assert.ErrorIs(t, err, ErrUserNotFound)

	// Lower-case input is normalized.
	f.grant(t, u, f.viewer)
	assert.True(t, f.has(t, u, "asekuracja", "view"))

	_, err = f.eng.RecognizedPermissions(ctx, "warehouse")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestInactiveUserDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "inactive")
	f.grant(t, u, f.editor)
	require.True(t, f.has(t, u, "asekuracja", permission.Edit))

	require.NoError(t, f.eng.SetUserActive(ctx, u, false))
	d, err := f.eng.Evaluate(ctx, u, "asekuracja", permission.Edit)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, DecisionDenyInactiveUser, d.Code)

	ok, err := f.eng.HasModuleAccess(ctx, u, "asekuracja")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.eng.SetUserActive(ctx, u, true))
	assert.True(t, f.has(t, u, "asekuracja", permission.Edit))
}

func TestCheckPermissionAuditsDenial(t *testing.T) {
	f := newFixture(t)
	ctx := WithActor(context.Background(), f.admin)
	u := f.newUser(t, "checked")
	f.grant(t, u, f.viewer)

	require.NoError(t, f.eng.CheckPermission(ctx, u, "asekuracja", permission.View))

	err := f.eng.CheckPermission(ctx, u, "asekuracja", permission.Delete)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, err, ErrForbidden)

	entries, err := f.eng.ListAuditEntries(ctx, &audit.QueryFilter{Kind: audit.KindCheck, SubjectID: &u})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(DecisionDenyNoPermission), entries[0].Decision)
	assert.Equal(t, "DELETE", entries[0].Permission)
	assert.Equal(t, f.admin, entries[0].ActorID)

	err = f.eng.CheckModuleAccess(ctx, u, "employees")
	assert.ErrorIs(t, err, ErrAccessDenied)
	require.NoError(t, f.eng.CheckModuleAccess(ctx, u, "asekuracja"))
}

func TestAuditAllowedChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuditAllowedChecks = true
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()
	u := f.newUser(t, "allowed")
	f.grant(t, u, f.viewer)

	require.NoError(t, f.eng.CheckPermission(ctx, u, "asekuracja", permission.View))
	entries, err := f.eng.ListAuditEntries(ctx, &audit.QueryFilter{Kind: audit.KindCheck, Decision: string(DecisionAllow)})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAuditSinkFailureDoesNotFailDecision(t *testing.T) {
	failing := audit.SinkFunc(func(context.Context, *audit.Entry) error {
		return errors.New("audit database down")
	})
	f := newFixture(t, WithAuditSink(failing))
	ctx := context.Background()
	u := f.newUser(t, "sinkfail")

	err := f.eng.CheckPermission(ctx, u, "asekuracja", permission.View)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.eng.GrantRole(ctx, u, f.viewer.ID, f.admin)
	require.NoError(t, err)
	require.NoError(t, f.eng.CheckPermission(ctx, u, "asekuracja", permission.View))
}

func TestMutationsAreAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, boss := f.newUser(t, "audited"), f.newUser(t, "boss")

	f.grant(t, u, f.viewer)
	require.NoError(t, f.eng.RevokeRole(ctx, u, f.viewer.ID))
	_, err := f.eng.ReplaceRoles(ctx, u, []id.RoleID{f.editor.ID}, f.admin)
	require.NoError(t, err)
	require.NoError(t, f.eng.SetSupervisor(ctx, u, boss))

	for _, kind := range []audit.Kind{audit.KindGrant, audit.KindRevoke, audit.KindReplace, audit.KindSupervisor} {
		entries, err := f.eng.ListAuditEntries(ctx, &audit.QueryFilter{Kind: kind, SubjectID: &u})
		require.NoError(t, err)
		assert.Len(t, entries, 1, kind)
	}
	grants, _ := f.eng.ListAuditEntries(ctx, &audit.QueryFilter{Kind: audit.KindGrant, SubjectID: &u})
	assert.Equal(t, f.admin, grants[0].ActorID)
	assert.Equal(t, "asekuracja", grants[0].Module)
}

func TestUnavailableStorePropagates(t *testing.T) {
	f := newFixture(t)
	u := f.newUser(t, "offline")
	f.store.failErr = context.DeadlineExceeded

	_, err := f.eng.HasPermission(context.Background(), u, "asekuracja", permission.View)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsSystemAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.newUser(t, "root")

	ok, err := f.eng.IsSystemAdmin(ctx, u)
	require.NoError(t, err)
	assert.False(t, ok)

	f.grant(t, u, f.sysAdmin)
	ok, err = f.eng.IsSystemAdmin(ctx, u)
	require.NoError(t, err)
	assert.True(t, ok)

	// The admin role carries no implicit permissions elsewhere.
	assert.False(t, f.has(t, u, "asekuracja", permission.View))
}

func TestEvaluatorPluginHook(t *testing.T) {
	p := &checkRecorder{}
	f := newFixture(t, WithPlugin(p))
	u := f.newUser(t, "hooked")
	f.grant(t, u, f.viewer)

	f.has(t, u, "asekuracja", permission.Edit)
	require.Len(t, p.events, 1)
	assert.Equal(t, "deny_no_permission", p.events[0].Code)
	assert.Equal(t, 1, p.granted)
}

type checkRecorder struct {
	events  []plugin.CheckEvent
	granted int
}

func (c *checkRecorder) Name() string { return "check-recorder" }

func (c *checkRecorder) OnAfterCheck(_ context.Context, ev plugin.CheckEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *checkRecorder) OnRoleGranted(_ context.Context, _ *grant.Grant) error {
	c.granted++
	return nil
}

// slowCatalogStore reads the module list, then holds the first ListModules
// call open until release is closed.
type slowCatalogStore struct {
	store.Store
	held    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *slowCatalogStore) ListModules(ctx context.Context) ([]*module.Module, error) {
	mods, err := s.Store.ListModules(ctx)
	if s.held.CompareAndSwap(false, true) {
		close(s.entered)
		<-s.release
	}
	return mods, err
}

func TestCatalogLoadRacingRegisterModule(t *testing.T) {
	ctx := context.Background()
	s := &slowCatalogStore{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	eng, err := NewEngine(WithStore(s))
	require.NoError(t, err)

	started := make(chan error, 1)
	go func() { started <- eng.Start(ctx) }()
	<-s.entered

	require.NoError(t, eng.RegisterModule(ctx, &module.Module{
		Name: "asekuracja", DisplayName: "Asekuracja", Permissions: []permission.Name{permission.View},
	}))
	close(s.release)
	require.NoError(t, <-started)

	r, err := eng.CreateRole(ctx, "ASSEK_VIEWER", "asekuracja", []permission.Name{permission.View}, false)
	require.NoError(t, err)
	u := &user.User{Login: "late"}
	require.NoError(t, eng.CreateUser(ctx, u))
	_, err = eng.GrantRole(ctx, u.ID, r.ID, id.Nil)
	require.NoError(t, err)

	ok, err := eng.HasModuleAccess(ctx, u.ID, "asekuracja")
	require.NoError(t, err)
	assert.True(t, ok)

	mods, err := eng.GetUserModules(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "asekuracja", mods[0].Module)
}

func TestCreateUserIsActiveByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := &user.User{Login: "plain"}
	require.NoError(t, f.eng.CreateUser(ctx, u))
	assert.True(t, u.IsActive)
	f.grant(t, u.ID, f.viewer)

	d, err := f.eng.Evaluate(ctx, u.ID, "asekuracja", permission.View)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, DecisionAllow, d.Code)

	stored, err := f.eng.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestEquivalenceNamesNormalized(t *testing.T) {
	added := Equivalences{}
	added.Add("equipment", "view_list", " view ")
	literal := Equivalences{"equipment": {"view_list": {"view"}}}

	for name, eq := range map[string]Equivalences{"add": added, "literal": literal} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, WithEquivalences(eq))
			u := f.newUser(t, "lister")
			f.grant(t, u, f.eqList)
			assert.True(t, f.has(t, u, "equipment", permission.View))
			assert.False(t, f.has(t, u, "equipment", permission.Edit))
		})
	}
}
