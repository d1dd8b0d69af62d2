package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/user"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment", "asekuracja", "employees", "admin"}, d.ModuleNames())

	eq := d.EquivalenceTable()
	assert.Equal(t, []permission.Name{permission.View}, eq["asekuracja"][permission.ViewList])
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"no modules": `modules: []`,
		"missing display name": `
modules:
  - name: equipment
    permissions: [VIEW]`,
		"bad permission": `
modules:
  - name: equipment
    display_name: Sprzęt
    permissions: ["view all"]`,
		"role outside vocabulary": `
modules:
  - name: equipment
    display_name: Sprzęt
    permissions: [VIEW]
roles:
  - name: EQ_EDITOR
    module: equipment
    permissions: [EDIT]`,
		"role in unknown module": `
modules:
  - name: equipment
    display_name: Sprzęt
    permissions: [VIEW]
roles:
  - name: WH_VIEWER
    module: warehouse
    permissions: [VIEW]`,
		"duplicate module": `
modules:
  - name: equipment
    display_name: A
    permissions: [VIEW]
  - name: equipment
    display_name: B
    permissions: [VIEW]`,
		"equivalence outside vocabulary": `
modules:
  - name: equipment
    display_name: Sprzęt
    permissions: [VIEW]
equivalences:
  - module: equipment
    granted: VIEW_LIST
    satisfies: [VIEW]`,
		"not yaml": `modules: [`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
			assert.Equal(t, fault.Validation, fault.KindOf(err))
		})
	}
}

func TestWildcardEquivalence(t *testing.T) {
	d, err := Parse([]byte(`
modules:
  - name: equipment
    display_name: Sprzęt
    permissions: [VIEW, VIEW_LIST]
equivalences:
  - module: "*"
    granted: view_list
    satisfies: [view]
`))
	require.NoError(t, err)
	eq := d.EquivalenceTable()
	assert.Equal(t, []permission.Name{permission.View}, eq[bastion.AnyModule][permission.ViewList])
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultYAML, 0o600))
	d, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, d.Modules, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d, err := Default()
	require.NoError(t, err)
	eng, err := bastion.NewEngine(bastion.WithStore(memory.New()), bastion.WithEquivalences(d.EquivalenceTable()))
	require.NoError(t, err)

	s, err := d.Apply(ctx, eng)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Modules)
	assert.Equal(t, len(d.Roles), s.RolesCreated)

	s, err = d.Apply(ctx, eng)
	require.NoError(t, err)
	assert.Zero(t, s.RolesCreated)
	assert.Zero(t, s.RolesUpdated)

	// Drifted seed roles are brought back in line, system roles included.
	admin, err := eng.GetRoleByName(ctx, "system_admin")
	require.NoError(t, err)
	assert.True(t, admin.IsSystem)

	viewer, err := eng.GetRoleByName(ctx, "ASSEK_VIEWER")
	require.NoError(t, err)
	_, err = eng.UpdateRolePermissions(ctx, viewer.ID, []permission.Name{permission.View, permission.Delete})
	require.NoError(t, err)

	s, err = d.Apply(ctx, eng)
	require.NoError(t, err)
	assert.Equal(t, 1, s.RolesUpdated)

	// The seeded catalog drives evaluation.
	u := &user.User{Login: "lister", IsActive: true}
	require.NoError(t, eng.CreateUser(ctx, u))
	list, err := eng.GetRoleByName(ctx, "ASSEK_LIST")
	require.NoError(t, err)
	_, err = eng.GrantRole(ctx, u.ID, list.ID, bastion.ID{})
	require.NoError(t, err)

	ok, err := eng.HasPermission(ctx, u.ID, "asekuracja", permission.View)
	require.NoError(t, err)
	assert.True(t, ok)

	mods, err := eng.GetUserModules(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "Asekuracja", mods[0].DisplayName)
}
