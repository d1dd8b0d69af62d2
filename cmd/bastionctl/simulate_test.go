package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/catalog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimulateFixture(t *testing.T) {
	def, err := catalog.Default()
	require.NoError(t, err)
	fx, err := loadFixture("testdata/fixture.yaml")
	require.NoError(t, err)

	rep, err := simulate(context.Background(), def, fx, discardLogger())
	require.NoError(t, err)
	require.Len(t, rep.Results, len(fx.Checks))
	assert.Zero(t, rep.Failures)

	codes := map[string]bastion.DecisionCode{}
	for _, r := range rep.Results {
		codes[r.User+"/"+r.Module+"/"+r.Permission] = r.Code
	}
	assert.Equal(t, bastion.DecisionAllowEquivalent, codes["jan/asekuracja/VIEW"])
	assert.Equal(t, bastion.DecisionAllow, codes["jan/asekuracja/VIEW_LIST"])
	assert.Equal(t, bastion.DecisionDenyNoPermission, codes["jan/asekuracja/EDIT"])
	assert.Equal(t, bastion.DecisionDenyNoModuleGrants, codes["ewa/equipment/VIEW"])
	assert.Equal(t, bastion.DecisionDenyInactiveUser, codes["piotr/equipment/VIEW"])
}

func TestSimulateCountsFailures(t *testing.T) {
	def, err := catalog.Default()
	require.NoError(t, err)
	fx, err := parseFixture([]byte(`
users:
  - login: jan
    roles: [ASSEK_VIEWER]
checks:
  - {user: jan, module: asekuracja, permission: VIEW, expect: deny}
  - {user: jan, module: asekuracja, permission: VIEW_LIST, expect: deny}
`))
	require.NoError(t, err)

	rep, err := simulate(context.Background(), def, fx, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failures)
	assert.False(t, rep.Results[0].Pass)
	assert.True(t, rep.Results[1].Pass)
}

func TestSimulateRejectsBadReferences(t *testing.T) {
	def, err := catalog.Default()
	require.NoError(t, err)

	tests := []struct {
		name    string
		fixture string
		want    string
	}{
		{
			name: "unknown role",
			fixture: `
users: [{login: jan, roles: [NO_SUCH_ROLE]}]
checks: [{user: jan, module: equipment, permission: VIEW, expect: deny}]`,
			want: "NO_SUCH_ROLE",
		},
		{
			name: "unknown supervisor",
			fixture: `
users: [{login: jan, supervisor: ghost}]
checks: [{user: jan, module: equipment, permission: VIEW, expect: deny}]`,
			want: "ghost",
		},
		{
			name: "unknown check user",
			fixture: `
users: [{login: jan}]
checks: [{user: ewa, module: equipment, permission: VIEW, expect: deny}]`,
			want: "ewa",
		},
		{
			name: "unknown module",
			fixture: `
users: [{login: jan}]
checks: [{user: jan, module: fleet, permission: VIEW, expect: deny}]`,
			want: "fleet",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, err := parseFixture([]byte(tt.fixture))
			require.NoError(t, err)
			_, err = simulate(context.Background(), def, fx, discardLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseFixtureValidates(t *testing.T) {
	_, err := parseFixture([]byte(`
users: [{login: jan}]
checks: [{user: jan, module: equipment, permission: VIEW, expect: maybe}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fixture")

	_, err = parseFixture([]byte(`users: [{login: jan}]`))
	require.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	t.Setenv("BASTION_CATALOG", "")
	t.Setenv("BASTION_OUTPUT", "text")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := newRootCmd(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("catalog", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 4 modules")

	out, err = run("catalog", "show", "-o", "json")
	require.NoError(t, err)
	var def catalog.Definition
	require.NoError(t, json.Unmarshal([]byte(out), &def))
	assert.Len(t, def.Modules, 4)

	out, err = run("simulate", "-f", "testdata/fixture.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "0 failures")

	_, err = run("simulate")
	require.Error(t, err)

	_, err = run("catalog", "show", "-o", "xml")
	require.Error(t, err)

	out, err = run("version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}
