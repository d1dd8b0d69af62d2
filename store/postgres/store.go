// Package postgres provides a PostgreSQL implementation of the Bastion
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// Store is a PostgreSQL implementation of the composite Bastion store.
//
// Grant writes run in a transaction that first locks the user's row, so
// concurrent ActivateGrant and ReplaceGrants calls for one user serialize.
// A partial unique index keeps at most one active grant per pair.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
	now  func() time.Time
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("bastion: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("bastion: migration failed: %w", err)
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

// isUniqueViolation reports a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func writeErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("bastion: %s: %w: %w", op, fault.ErrConflict, err)
	}
	return fmt.Errorf("bastion: %s: %w", op, err)
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
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("bastion: begin tx: %w", err)
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
		if _, err := tx.NewUpdate(moduleToModel(m)).WherePK().Exec(ctx); err != nil {
			return writeErr("update module", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		if m.ID.IsNil() {
			m.ID = id.NewModuleID()
		}
		m.CreatedAt = t
		m.UpdatedAt = t
		if _, err := tx.NewInsert(moduleToModel(m)).Exec(ctx); err != nil {
			return writeErr("create module", err)
		}
	default:
		return fmt.Errorf("bastion: get module by name: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bastion: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetModule(ctx context.Context, moduleID id.ModuleID) (*module.Module, error) {
	m := new(moduleModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", moduleID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("module %s: %w", moduleID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion: get module: %w", err)
	}
	return moduleFromModel(m), nil
}

func (s *Store) GetModuleByName(ctx context.Context, name string) (*module.Module, error) {
	m := new(moduleModel)
	err := s.pgdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("module %q: %w", name, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion: get module by name: %w", err)
	}
	return moduleFromModel(m), nil
}

func (s *Store) ListModules(ctx context.Context) ([]*module.Module, error) {
	var models []moduleModel
	if err := s.pgdb.NewSelect(&models).OrderExpr("sort_order ASC, name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list modules: %w", err)
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
	if _, err := s.pgdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return writeErr("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %s: %w", roleID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", name, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion: get role by name: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoles(ctx context.Context, roleIDs []id.RoleID) ([]*role.Role, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	in, args := placeholders(roleIDs)
	var models []roleModel
	if err := s.pgdb.NewSelect(&models).Where("id IN ("+in+")", args...).OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: get roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = s.now()
	res, err := s.pgdb.NewUpdate(roleToModel(r)).WherePK().Exec(ctx)
	if err != nil {
		return writeErr("update role", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("role %s: %w", r.ID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.pgdb.NewDelete((*roleModel)(nil)).
		Where("id = ?", roleID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.pgdb.NewSelect(&models).OrderExpr("name ASC")
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
		return nil, fmt.Errorf("bastion: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	t := s.now()
	u.CreatedAt = t
	u.UpdatedAt = t
	if _, err := s.pgdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		return writeErr("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", userID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion: get user: %w", err)
	}
	return userFromModel(m), nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*user.User, error) {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).Where("login = ?", login).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user login %q: %w", login, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion: get user by login: %w", err)
	}
	return userFromModel(m), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = s.now()
	res, err := s.pgdb.NewUpdate(userToModel(u)).WherePK().Exec(ctx)
	if err != nil {
		return writeErr("update user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) SetSupervisor(ctx context.Context, userID id.UserID, supervisorID *id.UserID) error {
	res, err := s.pgdb.NewUpdate((*userModel)(nil)).
		Set("supervisor_id = ?", optString(supervisorID)).
		Set("updated_at = ?", s.now()).
		Where("id = ?", userID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: set supervisor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSubordinates(ctx context.Context, supervisorID id.UserID) ([]*user.User, error) {
	var models []userModel
	err := s.pgdb.NewSelect(&models).
		Where("supervisor_id = ?", supervisorID.String()).
		OrderExpr("display_name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion: list subordinates: %w", err)
	}
	return usersFromModels(models), nil
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	var models []userModel
	q := s.pgdb.NewSelect(&models).OrderExpr("display_name ASC, id ASC")
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
		return nil, fmt.Errorf("bastion: list users: %w", err)
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
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("bastion: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.NewUpdate((*userModel)(nil)).
		Set("updated_at = updated_at").
		Where("id = ?", userID.String()).
		Exec(ctx); err != nil {
		return nil, false, fmt.Errorf("bastion: lock user: %w", err)
	}

	latest := new(grantModel)
	err = tx.NewSelect(latest).
		Where("user_id = ?", userID.String()).
		Where("role_id = ?", roleID.String()).
		OrderExpr("is_active DESC, created_at DESC").
		Limit(1).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		latest = nil
	case err != nil:
		return nil, false, fmt.Errorf("bastion: get grant: %w", err)
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
		return nil, false, fmt.Errorf("bastion: commit tx: %w", err)
	}
	return g, true, nil
}

func (s *Store) DeactivateGrant(ctx context.Context, userID, roleID id.ID) (*grant.Grant, error) {
	m := new(grantModel)
	err := s.pgdb.NewSelect(m).
		Where("user_id = ?", userID.String()).
		Where("role_id = ?", roleID.String()).
		Where("is_active = ?", true).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // absence of an active grant is not an error
		}
		return nil, fmt.Errorf("bastion: get active grant: %w", err)
	}
	g := grantFromModel(m)
	g.Deactivate(s.now())
	res, err := s.pgdb.NewUpdate((*grantModel)(nil)).
		Set("is_active = ?", false).
		Set("revoked_at = ?", *g.RevokedAt).
		Where("id = ?", m.ID).
		Where("is_active = ?", true).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion: deactivate grant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Revoked concurrently.
		return nil, nil //nolint:nilnil // absence of an active grant is not an error
	}
	return g, nil
}

func (s *Store) ReplaceGrants(ctx context.Context, userID id.UserID, roleIDs []id.RoleID, grantedBy id.UserID) ([]*grant.Grant, error) {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bastion: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	t := s.now()
	if _, err := tx.NewUpdate((*userModel)(nil)).
		Set("updated_at = updated_at").
		Where("id = ?", userID.String()).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: lock user: %w", err)
	}
	if _, err := tx.NewUpdate((*grantModel)(nil)).
		Set("is_active = ?", false).
		Set("revoked_at = ?", t).
		Where("user_id = ?", userID.String()).
		Where("is_active = ?", true).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: deactivate grants: %w", err)
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
		case errors.Is(err, sql.ErrNoRows):
			latest = nil
		case err != nil:
			return nil, fmt.Errorf("bastion: get grant: %w", err)
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
		return nil, fmt.Errorf("bastion: commit tx: %w", err)
	}
	return result, nil
}

func (s *Store) ListActiveGrants(ctx context.Context, userID id.UserID) ([]*grant.Grant, error) {
	var models []grantModel
	err := s.pgdb.NewSelect(&models).
		Where("user_id = ?", userID.String()).
		Where("is_active = ?", true).
		OrderExpr("granted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion: list active grants: %w", err)
	}
	return grantsFromModels(models), nil
}

func (s *Store) ListGrants(ctx context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	var models []grantModel
	q := s.pgdb.NewSelect(&models).OrderExpr("granted_at DESC")
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
		return nil, fmt.Errorf("bastion: list grants: %w", err)
	}
	return grantsFromModels(models), nil
}

func (s *Store) CountActiveGrantsForRole(ctx context.Context, roleID id.RoleID) (int64, error) {
	count, err := s.pgdb.NewSelect((*grantModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Where("is_active = ?", true).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: count role grants: %w", err)
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
	if _, err := s.pgdb.NewInsert(auditToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*audit.Entry, error) {
	m := new(auditModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", entryID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit entry %s: %w", entryID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("bastion: get audit entry: %w", err)
	}
	return auditFromModel(m), nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
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
		return nil, fmt.Errorf("bastion: list audit entries: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	q := s.pgdb.NewSelect((*auditModel)(nil))
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
		return 0, fmt.Errorf("bastion: count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*auditModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bastion: purge audit entries rows: %w", err)
	}
	return n, nil
}
