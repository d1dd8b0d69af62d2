package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/id"
)

func TestActivateIn(t *testing.T) {
	viewer, editor, admin := id.NewRoleID(), id.NewRoleID(), id.NewUserID()
	t0 := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	gs, i, changed := activateIn(nil, viewer, admin, t0)
	require.True(t, changed)
	require.Len(t, gs, 1)
	assert.Equal(t, 0, i)
	assert.True(t, gs[0].IsActive)

	gs, i, changed = activateIn(gs, viewer, admin, t0.Add(time.Hour))
	assert.False(t, changed, "already active")
	assert.Equal(t, t0, gs[i].GrantedAt)

	revoked := t0.Add(2 * time.Hour)
	gs[0].IsActive = false
	gs[0].RevokedAt = &revoked
	firstID := gs[0].ID

	gs, i, changed = activateIn(gs, viewer, admin, t0.Add(3*time.Hour))
	assert.True(t, changed)
	assert.Len(t, gs, 1, "reactivated, not duplicated")
	assert.Equal(t, firstID, gs[i].ID)
	assert.Nil(t, gs[i].RevokedAt)

	gs, _, _ = activateIn(gs, editor, admin, t0)
	assert.Len(t, gs, 2)
	assert.Equal(t, 1, activeIndex(gs, editor))
	assert.Equal(t, -1, activeIndex(gs, id.NewRoleID()))
}

func TestAuditFilter(t *testing.T) {
	assert.Empty(t, auditFilter(nil))

	subject := id.NewUserID()
	after := time.Now().Add(-time.Hour)
	f := auditFilter(&audit.QueryFilter{Kind: audit.KindCheck, SubjectID: &subject, After: &after})
	assert.Equal(t, "check", f["kind"])
	assert.Equal(t, subject.String(), f["subject_id"])
	assert.Equal(t, bson.M{"$gt": after}, f["created_at"])
}

func TestWriteErrMapsDuplicateKey(t *testing.T) {
	dup := mongod.WriteException{WriteErrors: []mongod.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, writeErr("create role", dup), fault.ErrConflict)
	assert.NotErrorIs(t, writeErr("create role", mongod.ErrNoDocuments), fault.ErrConflict)
}

func TestPaginate(t *testing.T) {
	a, b, c := 1, 2, 3
	items := []*int{&a, &b, &c}
	assert.Equal(t, []*int{&b}, paginate(items, 1, 1))
	assert.Nil(t, paginate(items, 0, 5))
	assert.Len(t, paginate(items, 0, 0), 3)
}
