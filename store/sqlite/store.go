// Package sqlite provides a SQLite implementation of the Bastion composite
// store using grove ORM with Go-based migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/user"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite Bastion store.
// SQLite serializes writers, so grant transactions need no row locks. A
// partial unique index keeps at most one active grant per pair.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
	now func() time.Time
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("bastion/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("bastion/sqlite: migration failed: %w", err)
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches SQLite's constraint message; the driver error
// type is not exposed through grove.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func writeErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("bastion/sqlite: %s: %w: %w", op, fault.ErrConflict, err)
	}
	return fmt.Errorf("bastion/sqlite: %s: %w", op, err)
}

// placeholders returns "?, ?, ?" and the matching args for an IN clause.
func placeholders(ids []id.ID) (string, []any) {
	args := make([]any, len(ids))
	for i, v := range ids {
		args[i] = v.String()
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

// ──────────────────────────────────────────────────
// Module operations
// ──────────────────────────────────────────────────

func (s *Store) UpsertModule(ctx context.Context, m *module.Module) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("bastion/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	t := s.now()
	existing := new(moduleModel)
	err = tx.NewSelect(existing).Where("name = ?", m.Name).Scan(ctx)
	switch {
	case err == nil:
		m.ID = id.FromString(existing.ID)
		m.CreatedAt = existing.CreatedAt
		m.UpdatedAt = t
		model, err := moduleToModel(m)
		if err != nil {
			return err
		}
		if _, err := tx.NewUpdate(model).WherePK().Exec(ctx); err != nil {
			return writeErr("update module", err)
		}
	case isNoRows(err):
		if m.ID.IsNil() {
			m.ID = id.NewModuleID()
		}
		m.CreatedAt = t
		m.UpdatedAt = t
		model, err := moduleToModel(m)
		if err != nil {
			return err
		}
		if _, err := tx.NewInsert(model).Exec(ctx); err != nil {
			return writeErr("create module", err)
		}
	default:
		return fmt.Errorf("bastion/sqlite: get module by name: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bastion/sqlite: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetModule(ctx context.Context, moduleID id.ModuleID) (*module.Module, error) {
	m := new(moduleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", moduleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("module %s: %w", moduleID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/sqlite: get module: %w", err)
	}
	return moduleFromModel(m)
}

func (s *Store) GetModuleByName(ctx context.Context, name string) (*module.Module, error) {
	m := new(moduleModel)
	err := s.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("module %q: %w", name, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/sqlite: get module by name: %w", err)
	}
	return moduleFromModel(m)
}

func (s *Store) ListModules(ctx context.Context) ([]*module.Module, error) {
	var models []moduleModel
	if err := s.sdb.NewSelect(&models).OrderExpr("sort_order ASC, name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: list modules: %w", err)
	}
	result := make([]*module.Module, len(models))
	for i := range models {
		m, err := moduleFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = m
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
	m, err := roleToModel(r)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return writeErr("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/sqlite: get role: %w", err)
	}
	return roleFromModel(m)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %q: %w", name, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/sqlite: get role by name: %w", err)
	}
	return roleFromModel(m)
}

func (s *Store) GetRoles(ctx context.Context, roleIDs []id.RoleID) ([]*role.Role, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	in, args := placeholders(roleIDs)
	var models []roleModel
	if err := s.sdb.NewSelect(&models).Where("id IN ("+in+")", args...).OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: get roles: %w", err)
	}
	return rolesFromModels(models)
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = s.now()
	m, err := roleToModel(r)
	if err != nil {
		return err
	}
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return writeErr("update role", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("role %s: %w", r.ID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.sdb.NewDelete((*roleModel)(nil)).
		Where("id = ?", roleID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion/sqlite: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.sdb.NewSelect(&models).OrderExpr("name ASC")
	if filter != nil {
		if filter.ModuleName != "" {
			q = q.Where("module_name = ?", filter.ModuleName)
		}
		if filter.IsSystem != nil {
			q = q.Where("is_system = ?", *filter.IsSystem)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: list roles: %w", err)
	}
	return rolesFromModels(models)
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	t := s.now()
	u.CreatedAt = t
	u.UpdatedAt = t
	if _, err := s.sdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		return writeErr("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.sdb.NewSelect(m).Where("id = ?", userID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/sqlite: get user: %w", err)
	}
	return userFromModel(m), nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*user.User, error) {
	m := new(userModel)
	err := s.sdb.NewSelect(m).Where("login = ?", login).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user login %q: %w", login, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/sqlite: get user by login: %w", err)
	}
	return userFromModel(m), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = s.now()
	res, err := s.sdb.NewUpdate(userToModel(u)).WherePK().Exec(ctx)
	if err != nil {
		return writeErr("update user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) SetSupervisor(ctx context.Context, userID id.UserID, supervisorID *id.UserID) error {
	res, err := s.sdb.NewUpdate((*userModel)(nil)).
		Set("supervisor_id = ?", optString(supervisorID)).
		Set("updated_at = ?", s.now()).
		Where("id = ?", userID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion/sqlite: set supervisor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSubordinates(ctx context.Context, supervisorID id.UserID) ([]*user.User, error) {
	var models []userModel
	err := s.sdb.NewSelect(&models).
		Where("supervisor_id = ?", supervisorID.String()).
		OrderExpr("display_name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion/sqlite: list subordinates: %w", err)
	}
	return usersFromModels(models), nil
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	var models []userModel
	q := s.sdb.NewSelect(&models).OrderExpr("display_name ASC, id ASC")
	if filter != nil {
		if filter.Active != nil {
			q = q.Where("is_active = ?", *filter.Active)
		}
		if filter.Department != "" {
			q = q.Where("department = ?", filter.Department)
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("(LOWER(display_name) LIKE LOWER(?) OR LOWER(login) LIKE LOWER(?))", like, like)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: list users: %w", err)
	}
	return usersFromModels(models), nil
}

func rolesFromModels(models []roleModel) ([]*role.Role, error) {
	result := make([]*role.Role, len(models))
	for i := range models {
		r, err := roleFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
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

// reactivateOrCreate decides what to write for a pair given its most
// recent grant row (nil when the pair has none).
func reactivateOrCreate(latest *grantModel, userID, roleID, grantedBy id.ID, t time.Time) (g *grant.Grant, insert bool) {
	if latest == nil {
		return grant.New(userID, roleID, grantedBy, t), true
	}
	g = grantFromModel(latest)
	g.Activate(grantedBy, t)
	return g, false
}

func (s *Store) ActivateGrant(ctx context.Context, userID, roleID, grantedBy id.ID) (*grant.Grant, bool, error) {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("bastion/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	latest := new(grantModel)
	err = tx.NewSelect(latest).
		Where("user_id = ?", userID.String()).
		Where("role_id = ?", roleID.String()).
		OrderExpr("is_active DESC, created_at DESC").
		Limit(1).
		Scan(ctx)
	switch {
	case isNoRows(err):
		latest = nil
	case err != nil:
		return nil, false, fmt.Errorf("bastion/sqlite: get grant: %w", err)
	case latest.IsActive:
		return grantFromModel(latest), false, nil
	}

	g, insert := reactivateOrCreate(latest, userID, roleID, grantedBy, s.now())
	if insert {
		_, err = tx.NewInsert(grantToModel(g)).Exec(ctx)
	} else {
		_, err = tx.NewUpdate(grantToModel(g)).WherePK().Exec(ctx)
	}
	if err != nil {
		return nil, false, writeErr("activate grant", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("bastion/sqlite: commit tx: %w", err)
	}
	return g, true, nil
}

func (s *Store) DeactivateGrant(ctx context.Context, userID, roleID id.ID) (*grant.Grant, error) {
	m := new(grantModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID.String()).
		Where("role_id = ?", roleID.String()).
		Where("is_active = ?", true).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil //nolint:nilnil // absence of an active grant is not an error
		}
		return nil, fmt.Errorf("bastion/sqlite: get active grant: %w", err)
	}
	g := grantFromModel(m)
	g.Deactivate(s.now())
	res, err := s.sdb.NewUpdate((*grantModel)(nil)).
		Set("is_active = ?", false).
		Set("revoked_at = ?", *g.RevokedAt).
		Where("id = ?", m.ID).
		Where("is_active = ?", true).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion/sqlite: deactivate grant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Revoked concurrently.
		return nil, nil //nolint:nilnil // absence of an active grant is not an error
	}
	return g, nil
}

func (s *Store) ReplaceGrants(ctx context.Context, userID id.UserID, roleIDs []id.RoleID, grantedBy id.UserID) ([]*grant.Grant, error) {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bastion/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	t := s.now()
	if _, err := tx.NewUpdate((*grantModel)(nil)).
		Set("is_active = ?", false).
		Set("revoked_at = ?", t).
		Where("user_id = ?", userID.String()).
		Where("is_active = ?", true).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: deactivate grants: %w", err)
	}

	result := make([]*grant.Grant, 0, len(roleIDs))
	for _, rid := range roleIDs {
		latest := new(grantModel)
		err := tx.NewSelect(latest).
			Where("user_id = ?", userID.String()).
			Where("role_id = ?", rid.String()).
			OrderExpr("created_at DESC").
			Limit(1).
			Scan(ctx)
		switch {
		case isNoRows(err):
			latest = nil
		case err != nil:
			return nil, fmt.Errorf("bastion/sqlite: get grant: %w", err)
		}

		g, insert := reactivateOrCreate(latest, userID, rid, grantedBy, t)
		if insert {
			_, err = tx.NewInsert(grantToModel(g)).Exec(ctx)
		} else {
			_, err = tx.NewUpdate(grantToModel(g)).WherePK().Exec(ctx)
		}
		if err != nil {
			return nil, writeErr("replace grants", err)
		}
		result = append(result, g)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: commit tx: %w", err)
	}
	return result, nil
}

func (s *Store) ListActiveGrants(ctx context.Context, userID id.UserID) ([]*grant.Grant, error) {
	var models []grantModel
	err := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID.String()).
		Where("is_active = ?", true).
		OrderExpr("granted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion/sqlite: list active grants: %w", err)
	}
	return grantsFromModels(models), nil
}

func (s *Store) ListGrants(ctx context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	var models []grantModel
	q := s.sdb.NewSelect(&models).OrderExpr("granted_at DESC")
	if filter == nil || !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if filter != nil {
		if filter.UserID != nil {
			q = q.Where("user_id = ?", filter.UserID.String())
		}
		if filter.RoleID != nil {
			q = q.Where("role_id = ?", filter.RoleID.String())
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: list grants: %w", err)
	}
	return grantsFromModels(models), nil
}

func (s *Store) CountActiveGrantsForRole(ctx context.Context, roleID id.RoleID) (int64, error) {
	count, err := s.sdb.NewSelect((*grantModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Where("is_active = ?", true).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion/sqlite: count role grants: %w", err)
	}
	return count, nil
}

func grantsFromModels(models []grantModel) []*grant.Grant {
	result := make([]*grant.Grant, len(models))
	for i := range models {
		result[i] = grantFromModel(&models[i])
	}
	return result
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	m, err := auditToModel(e)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("bastion/sqlite: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*audit.Entry, error) {
	m := new(auditModel)
	err := s.sdb.NewSelect(m).Where("id = ?", entryID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("audit entry %s: %w", entryID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion/sqlite: get audit entry: %w", err)
	}
	return auditFromModel(m)
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.SubjectID != nil {
			q = q.Where("subject_id = ?", filter.SubjectID.String())
		}
		if filter.ActorID != nil {
			q = q.Where("actor_id = ?", filter.ActorID.String())
		}
		if filter.Module != "" {
			q = q.Where("module = ?", filter.Module)
		}
		if filter.Decision != "" {
			q = q.Where("decision = ?", filter.Decision)
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion/sqlite: list audit entries: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		e, err := auditFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*auditModel)(nil))
	if filter != nil {
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.SubjectID != nil {
			q = q.Where("subject_id = ?", filter.SubjectID.String())
		}
		if filter.ActorID != nil {
			q = q.Where("actor_id = ?", filter.ActorID.String())
		}
		if filter.Module != "" {
			q = q.Where("module = ?", filter.Module)
		}
		if filter.Decision != "" {
			q = q.Where("decision = ?", filter.Decision)
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion/sqlite: count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*auditModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion/sqlite: purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bastion/sqlite: purge audit entries rows: %w", err)
	}
	return n, nil
}
