package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/user"
)

func TestWriteErrMapsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "bastion_roles_name_key"})
	err := writeErr("create role", dup)
	assert.ErrorIs(t, err, fault.ErrConflict)

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)

	err = writeErr("create role", &pgconn.PgError{Code: "23503"})
	assert.NotErrorIs(t, err, fault.ErrConflict)
	assert.NotErrorIs(t, writeErr("x", errors.New("boom")), fault.ErrConflict)
}

func TestPlaceholders(t *testing.T) {
	a, b := id.NewRoleID(), id.NewRoleID()
	in, args := placeholders([]id.ID{a, b})
	assert.Equal(t, "?, ?", in)
	assert.Equal(t, []any{a.String(), b.String()}, args)
}

func TestReactivateOrCreate(t *testing.T) {
	uid, rid, by := id.NewUserID(), id.NewRoleID(), id.NewUserID()
	now := time.Now().UTC()

	g, insert := reactivateOrCreate(nil, uid, rid, by, now)
	assert.True(t, insert)
	assert.True(t, g.IsActive)
	assert.Equal(t, now, g.GrantedAt)

	revoked := now.Add(-time.Hour)
	old := &grantModel{
		ID:        id.NewGrantID().String(),
		UserID:    uid.String(),
		RoleID:    rid.String(),
		GrantedAt: now.Add(-2 * time.Hour),
		RevokedAt: &revoked,
		CreatedAt: now.Add(-2 * time.Hour),
	}
	g, insert = reactivateOrCreate(old, uid, rid, by, now)
	assert.False(t, insert)
	assert.Equal(t, old.ID, g.ID.String(), "reactivation keeps the row")
	assert.True(t, g.IsActive)
	assert.Nil(t, g.RevokedAt)
	assert.Equal(t, by, g.GrantedBy)
}

func TestModelConversions(t *testing.T) {
	sup := id.NewUserID()
	u := &user.User{ID: id.NewUserID(), Login: "jkowalski", IsActive: true, SupervisorID: &sup}
	back := userFromModel(userToModel(u))
	require.NotNil(t, back.SupervisorID)
	assert.Equal(t, sup, *back.SupervisorID)

	u.SupervisorID = nil
	assert.Nil(t, userToModel(u).SupervisorID)

	r := &role.Role{ID: id.NewRoleID(), Name: "ASSEK_VIEWER", Permissions: []permission.Name{permission.View, permission.ViewList}}
	assert.Equal(t, []string{"VIEW", "VIEW_LIST"}, roleToModel(r).Permissions)
	assert.Equal(t, r.Permissions, roleFromModel(roleToModel(r)).Permissions)
}
