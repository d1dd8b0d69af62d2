// Package mongo provides a MongoDB implementation of the Bastion composite
// store backed by grove's mongo driver.
package mongo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/user"
)

// Collection name constants.
const (
	colModules = "bastion_modules"
	colRoles   = "bastion_roles"
	colUsers   = "bastion_users"
	colAudit   = "bastion_audit"
)

// maxGrantRetries bounds optimistic retries of a grant write that lost a
// race with another writer of the same user.
const maxGrantRetries = 5

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Bastion store.
//
// Grants live inside the user document. Every grant write replaces the
// whole array guarded by grants_version, so a reader always sees one
// complete grant set.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
	now func() time.Time
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates indexes for all bastion collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("bastion/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

func writeErr(op string, err error) error {
	if mongod.IsDuplicateKeyError(err) {
		return fmt.Errorf("bastion/mongo: %s: %w: %w", op, fault.ErrConflict, err)
	}
	return fmt.Errorf("bastion/mongo: %s: %w", op, err)
}

// migrationIndexes returns the index definitions for all bastion collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colModules: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "sort_order", Value: 1}, {Key: "name", Value: 1}}},
		},
		colRoles: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "module_name", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "login", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "supervisor_id", Value: 1}}},
			{Keys: bson.D{{Key: "grants.role_id", Value: 1}, {Key: "grants.is_active", Value: 1}}},
		},
		colAudit: {
			{Keys: bson.D{{Key: "subject_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Module operations
// ──────────────────────────────────────────────────

func (s *Store) UpsertModule(ctx context.Context, m *module.Module) error {
	t := s.now()
	var existing moduleModel
	err := s.mdb.NewFind(&existing).Filter(bson.M{"name": m.Name}).Scan(ctx)
	switch {
	case err == nil:
		m.ID = id.FromString(existing.ID)
		m.CreatedAt = existing.CreatedAt
		m.UpdatedAt = t
		model := moduleToModel(m)
		if _, err := s.mdb.NewUpdate(model).Filter(bson.M{"_id": model.ID}).Exec(ctx); err != nil {
			return writeErr("update module", err)
		}
	case isNoDocuments(err):
		if m.ID.IsNil() {
			m.ID = id.NewModuleID()
		}
		m.CreatedAt = t
		m.UpdatedAt = t
		if _, err := s.mdb.NewInsert(moduleToModel(m)).Exec(ctx); err != nil {
			return writeErr("create module", err)
		}
	default:
		return fmt.Errorf("bastion/mongo: get module by name: %w", err)
	}
	return nil
}

func (s *Store) GetModule(ctx context.Context, moduleID id.ModuleID) (*module.Module, error) {
	var m moduleModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": moduleID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("module %s: %w", moduleID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/mongo: get module: %w", err)
	}
	return moduleFromModel(&m), nil
}

func (s *Store) GetModuleByName(ctx context.Context, name string) (*module.Module, error) {
	var m moduleModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"name": name}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("module %q: %w", name, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/mongo: get module by name: %w", err)
	}
	return moduleFromModel(&m), nil
}

func (s *Store) ListModules(ctx context.Context) ([]*module.Module, error) {
	var models []moduleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "sort_order", Value: 1}, {Key: "name", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion/mongo: list modules: %w", err)
	}
	result := make([]*module.Module, len(models))
	for i := range models {
		result[i] = moduleFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	t := s.now()
	r.CreatedAt = t
	r.UpdatedAt = t
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return writeErr("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": roleID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/mongo: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"name": name}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/mongo: get role by name: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoles(ctx context.Context, roleIDs []id.RoleID) ([]*role.Role, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(roleIDs))
	for i, rid := range roleIDs {
		ids[i] = rid.String()
	}
	var models []roleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": ids}}).
		Sort(bson.D{{Key: "name", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion/mongo: get roles: %w", err)
	}
	return rolesFromModels(models), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = s.now()
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).Filter(bson.M{"_id": m.ID}).Exec(ctx)
	if err != nil {
		return writeErr("update role", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion/mongo: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	f := bson.M{}
	if filter != nil {
		if filter.ModuleName != "" {
			f["module_name"] = filter.ModuleName
		}
		if filter.IsSystem != nil {
			f["is_system"] = *filter.IsSystem
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/mongo: list roles: %w", err)
	}
	return rolesFromModels(models), nil
}

func rolesFromModels(models []roleModel) []*role.Role {
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	t := s.now()
	u.CreatedAt = t
	u.UpdatedAt = t
	if _, err := s.mdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		return writeErr("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m, err := s.getUserModel(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userFromModel(m), nil
}

func (s *Store) getUserModel(ctx context.Context, userID id.UserID) (*userModel, error) {
	var m userModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": userID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/mongo: get user: %w", err)
	}
	return &m, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"login": login}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("user login %q: %w", login, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/mongo: get user by login: %w", err)
	}
	return userFromModel(&m), nil
}

// UpdateUser sets profile fields only; embedded grants are untouched.
func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = s.now()
	res, err := s.mdb.NewUpdate((*userModel)(nil)).
		Filter(bson.M{"_id": u.ID.String()}).
		Set("login", u.Login).
		Set("display_name", u.DisplayName).
		Set("email", u.Email).
		Set("is_active", u.IsActive).
		Set("supervisor_id", optString(u.SupervisorID)).
		Set("department", u.Department).
		Set("branch", u.Branch).
		Set("updated_at", u.UpdatedAt).
		Exec(ctx)
	if err != nil {
		return writeErr("update user", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("user %s: %w", u.ID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) SetSupervisor(ctx context.Context, userID id.UserID, supervisorID *id.UserID) error {
	res, err := s.mdb.NewUpdate((*userModel)(nil)).
		Filter(bson.M{"_id": userID.String()}).
		Set("supervisor_id", optString(supervisorID)).
		Set("updated_at", s.now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion/mongo: set supervisor: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSubordinates(ctx context.Context, supervisorID id.UserID) ([]*user.User, error) {
	var models []userModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"supervisor_id": supervisorID.String()}).
		Sort(bson.D{{Key: "display_name", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion/mongo: list subordinates: %w", err)
	}
	return usersFromModels(models), nil
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	var models []userModel
	f := bson.M{}
	if filter != nil {
		if filter.Active != nil {
			f["is_active"] = *filter.Active
		}
		if filter.Department != "" {
			f["department"] = filter.Department
		}
		if filter.Search != "" {
			re := bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
			f["$or"] = bson.A{bson.M{"display_name": re}, bson.M{"login": re}}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "display_name", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/mongo: list users: %w", err)
	}
	return usersFromModels(models), nil
}

func usersFromModels(models []userModel) []*user.User {
	result := make([]*user.User, len(models))
	for i := range models {
		result[i] = userFromModel(&models[i])
	}
	return result
}

// ──────────────────────────────────────────────────
// Grant operations
// ──────────────────────────────────────────────────

// mutateGrants rewrites the user's grant array with fn. The write only
// lands if grants_version is unchanged since the read; otherwise fn runs
// again on fresh data.
func (s *Store) mutateGrants(ctx context.Context, userID id.UserID, fn func([]grantModel) ([]grantModel, bool)) error {
	for range maxGrantRetries {
		m, err := s.getUserModel(ctx, userID)
		if err != nil {
			return err
		}
		grants, changed := fn(slices.Clone(m.Grants))
		if !changed {
			return nil
		}
		res, err := s.mdb.NewUpdate((*userModel)(nil)).
			Filter(bson.M{"_id": m.ID, "grants_version": m.GrantsVersion}).
			Set("grants", grants).
			Set("grants_version", m.GrantsVersion+1).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("bastion/mongo: write grants: %w", err)
		}
		if res.MatchedCount() == 1 {
			return nil
		}
	}
	return fmt.Errorf("bastion/mongo: grants of user %s changed concurrently: %w", userID, fault.ErrConflict)
}

func (s *Store) ActivateGrant(ctx context.Context, userID, roleID, grantedBy id.ID) (*grant.Grant, bool, error) {
	var (
		g       *grant.Grant
		changed bool
	)
	err := s.mutateGrants(ctx, userID, func(gs []grantModel) ([]grantModel, bool) {
		out, i, ch := activateIn(gs, roleID, grantedBy, s.now())
		g, changed = grantFromModel(userID.String(), &out[i]), ch
		return out, ch
	})
	if err != nil {
		return nil, false, err
	}
	return g, changed, nil
}

func (s *Store) DeactivateGrant(ctx context.Context, userID, roleID id.ID) (*grant.Grant, error) {
	var g *grant.Grant
	err := s.mutateGrants(ctx, userID, func(gs []grantModel) ([]grantModel, bool) {
		g = nil
		i := activeIndex(gs, roleID)
		if i < 0 {
			return gs, false
		}
		t := s.now()
		gs[i].IsActive = false
		gs[i].RevokedAt = &t
		g = grantFromModel(userID.String(), &gs[i])
		return gs, true
	})
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return nil, nil //nolint:nilnil // unknown user holds no active grant
		}
		return nil, err
	}
	return g, nil
}

func (s *Store) ReplaceGrants(ctx context.Context, userID id.UserID, roleIDs []id.RoleID, grantedBy id.UserID) ([]*grant.Grant, error) {
	var result []*grant.Grant
	err := s.mutateGrants(ctx, userID, func(gs []grantModel) ([]grantModel, bool) {
		t := s.now()
		for i := range gs {
			if gs[i].IsActive {
				gs[i].IsActive = false
				gs[i].RevokedAt = &t
			}
		}
		result = make([]*grant.Grant, 0, len(roleIDs))
		for _, rid := range roleIDs {
			var i int
			gs, i, _ = activateIn(gs, rid, grantedBy, t)
			result = append(result, grantFromModel(userID.String(), &gs[i]))
		}
		return gs, true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListActiveGrants(ctx context.Context, userID id.UserID) ([]*grant.Grant, error) {
	m, err := s.getUserModel(ctx, userID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var result []*grant.Grant
	for i := range m.Grants {
		if m.Grants[i].IsActive {
			result = append(result, grantFromModel(m.ID, &m.Grants[i]))
		}
	}
	slices.SortFunc(result, func(a, b *grant.Grant) int { return a.GrantedAt.Compare(b.GrantedAt) })
	return result, nil
}

func (s *Store) ListGrants(ctx context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	f := bson.M{}
	includeInactive := filter != nil && filter.IncludeInactive
	if filter != nil {
		if filter.UserID != nil {
			f["_id"] = filter.UserID.String()
		}
		if filter.RoleID != nil {
			f["grants.role_id"] = filter.RoleID.String()
		}
	}
	var models []userModel
	if err := s.mdb.NewFind(&models).Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/mongo: list grants: %w", err)
	}

	var result []*grant.Grant
	for i := range models {
		for j := range models[i].Grants {
			gm := &models[i].Grants[j]
			if !includeInactive && !gm.IsActive {
				continue
			}
			if filter != nil && filter.RoleID != nil && gm.RoleID != filter.RoleID.String() {
				continue
			}
			result = append(result, grantFromModel(models[i].ID, gm))
		}
	}
	slices.SortFunc(result, func(a, b *grant.Grant) int {
		return cmp.Or(b.GrantedAt.Compare(a.GrantedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountActiveGrantsForRole(ctx context.Context, roleID id.RoleID) (int64, error) {
	count, err := s.mdb.NewFind((*userModel)(nil)).
		Filter(bson.M{"grants": bson.M{"$elemMatch": bson.M{"role_id": roleID.String(), "is_active": true}}}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion/mongo: count role grants: %w", err)
	}
	return count, nil
}

// activeIndex returns the index of the active grant for roleID, or -1.
func activeIndex(gs []grantModel, roleID id.ID) int {
	rid := roleID.String()
	for i := range gs {
		if gs[i].RoleID == rid && gs[i].IsActive {
			return i
		}
	}
	return -1
}

// activateIn applies reactivate-or-create for roleID and returns the index
// of the resulting grant.
func activateIn(gs []grantModel, roleID, grantedBy id.ID, t time.Time) ([]grantModel, int, bool) {
	if i := activeIndex(gs, roleID); i >= 0 {
		return gs, i, false
	}
	rid := roleID.String()
	latest := -1
	for i := range gs {
		if gs[i].RoleID == rid && (latest < 0 || gs[i].CreatedAt.After(gs[latest].CreatedAt)) {
			latest = i
		}
	}
	if latest >= 0 {
		gs[latest].IsActive = true
		gs[latest].GrantedBy = grantedBy.String()
		gs[latest].GrantedAt = t
		gs[latest].RevokedAt = nil
		return gs, latest, true
	}
	gs = append(gs, grantToModel(grant.New(id.Nil, roleID, grantedBy, t)))
	return gs, len(gs) - 1, true
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if _, err := s.mdb.NewInsert(auditToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("bastion/mongo: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*audit.Entry, error) {
	var m auditModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": entryID.String()}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("audit entry %s: %w", entryID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/mongo: get audit entry: %w", err)
	}
	return auditFromModel(&m), nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.mdb.NewFind(&models).
		Filter(auditFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/mongo: list audit entries: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*auditModel)(nil)).
		Filter(auditFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion/mongo: count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*auditModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion/mongo: purge audit entries: %w", err)
	}
	return res.DeletedCount(), nil
}

func auditFilter(filter *audit.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.Kind != "" {
		f["kind"] = string(filter.Kind)
	}
	if filter.SubjectID != nil {
		f["subject_id"] = filter.SubjectID.String()
	}
	if filter.ActorID != nil {
		f["actor_id"] = filter.ActorID.String()
	}
	if filter.Module != "" {
		f["module"] = filter.Module
	}
	if filter.Decision != "" {
		f["decision"] = filter.Decision
	}
	created := bson.M{}
	if filter.After != nil {
		created["$gt"] = *filter.After
	}
	if filter.Before != nil {
		created["$lt"] = *filter.Before
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	return f
}
