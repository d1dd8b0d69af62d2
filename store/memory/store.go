// Package memory provides an in-memory implementation of the Bastion
// composite store. It is intended for testing, development and the
// bastionctl simulator.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

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

// Store is a thread-safe in-memory store for all Bastion entities. A
// single mutex guards every map, so multi-entity writes are atomic.
type Store struct {
	mu sync.RWMutex

	modules map[string]*module.Module
	roles   map[string]*role.Role
	users   map[string]*user.User
	grants  map[string]*grant.Grant
	audits  map[string]*audit.Entry

	now func() time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		modules: make(map[string]*module.Module),
		roles:   make(map[string]*role.Role),
		users:   make(map[string]*user.User),
		grants:  make(map[string]*grant.Grant),
		audits:  make(map[string]*audit.Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Module Store
// ──────────────────────────────────────────────────

func (s *Store) UpsertModule(_ context.Context, m *module.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now()
	for _, existing := range s.modules {
		if existing.Name == m.Name {
			m.ID = existing.ID
			m.CreatedAt = existing.CreatedAt
			m.UpdatedAt = t
			s.modules[m.ID.String()] = copyModule(m)
			return nil
		}
	}
	if m.ID.IsNil() {
		m.ID = id.NewModuleID()
	}
	m.CreatedAt = t
	m.UpdatedAt = t
	s.modules[m.ID.String()] = copyModule(m)
	return nil
}

func (s *Store) GetModule(_ context.Context, moduleID id.ModuleID) (*module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[moduleID.String()]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", moduleID, fault.ErrNotFound)
	}
	return copyModule(m), nil
}

func (s *Store) GetModuleByName(_ context.Context, name string) (*module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.modules {
		if m.Name == name {
			return copyModule(m), nil
		}
	}
	return nil, fmt.Errorf("module %q: %w", name, fault.ErrNotFound)
}

func (s *Store) ListModules(_ context.Context) ([]*module.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*module.Module, 0, len(s.modules))
	for _, m := range s.modules {
		result = append(result, copyModule(m))
	}
	slices.SortFunc(result, func(a, b *module.Module) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.Name, b.Name))
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return fmt.Errorf("role %q: %w", r.Name, fault.ErrConflict)
		}
	}
	t := s.now()
	r.CreatedAt = t
	r.UpdatedAt = t
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, fault.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, fault.ErrNotFound)
}

func (s *Store) GetRoles(_ context.Context, roleIDs []id.RoleID) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(roleIDs))
	for _, rid := range roleIDs {
		if r, ok := s.roles[rid.String()]; ok {
			result = append(result, copyRole(r))
		}
	}
	return result, nil
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, fault.ErrNotFound)
	}
	r.UpdatedAt = s.now()
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, roleID.String())
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.ModuleName != "" && r.ModuleName != filter.ModuleName {
				continue
			}
			if filter.IsSystem != nil && r.IsSystem != *filter.IsSystem {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	slices.SortFunc(result, func(a, b *role.Role) int { return cmp.Compare(a.Name, b.Name) })
	if filter != nil {
		result = applyPagination(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// User Store
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Login == u.Login {
			return fmt.Errorf("user login %q: %w", u.Login, fault.ErrConflict)
		}
	}
	t := s.now()
	u.CreatedAt = t
	u.UpdatedAt = t
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByLogin(_ context.Context, login string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Login == login {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user login %q: %w", login, fault.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID.String()]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, fault.ErrNotFound)
	}
	u.UpdatedAt = s.now()
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) SetSupervisor(_ context.Context, userID id.UserID, supervisorID *id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, fault.ErrNotFound)
	}
	if supervisorID != nil {
		sid := *supervisorID
		u.SupervisorID = &sid
	} else {
		u.SupervisorID = nil
	}
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) ListSubordinates(_ context.Context, supervisorID id.UserID) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*user.User
	for _, u := range s.users {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
			result = append(result, copyUser(u))
		}
	}
	sortUsers(result)
	return result, nil
}

func (s *Store) ListUsers(_ context.Context, filter *user.ListFilter) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		if filter != nil {
			if filter.Active != nil && u.IsActive != *filter.Active {
				continue
			}
			if filter.Department != "" && u.Department != filter.Department {
				continue
			}
			if filter.Search != "" {
				q := strings.ToLower(filter.Search)
				if !strings.Contains(strings.ToLower(u.DisplayName), q) && !strings.Contains(strings.ToLower(u.Login), q) {
					continue
				}
			}
		}
		result = append(result, copyUser(u))
	}
	sortUsers(result)
	if filter != nil {
		result = applyPagination(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Grant Store
// ──────────────────────────────────────────────────

func (s *Store) ActivateGrant(_ context.Context, userID, roleID, grantedBy id.ID) (*grant.Grant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, changed := s.activateLocked(userID, roleID, grantedBy, s.now())
	return copyGrant(g), changed, nil
}

// activateLocked implements reactivate-or-create. Callers hold s.mu.
func (s *Store) activateLocked(userID, roleID, grantedBy id.ID, t time.Time) (*grant.Grant, bool) {
	var latest *grant.Grant
	for _, g := range s.grants {
		if g.UserID != userID || g.RoleID != roleID {
			continue
		}
		if g.IsActive {
			return g, false
		}
		if latest == nil || g.CreatedAt.After(latest.CreatedAt) {
			latest = g
		}
	}
	if latest != nil {
		latest.Activate(grantedBy, t)
		return latest, true
	}
	g := grant.New(userID, roleID, grantedBy, t)
	s.grants[g.ID.String()] = g
	return g, true
}

func (s *Store) DeactivateGrant(_ context.Context, userID, roleID id.ID) (*grant.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.UserID == userID && g.RoleID == roleID && g.IsActive {
			g.Deactivate(s.now())
			return copyGrant(g), nil
		}
	}
	return nil, nil //nolint:nilnil // absence of an active grant is not an error
}

func (s *Store) ReplaceGrants(_ context.Context, userID id.UserID, roleIDs []id.RoleID, grantedBy id.UserID) ([]*grant.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now()
	for _, g := range s.grants {
		if g.UserID == userID && g.IsActive {
			g.Deactivate(t)
		}
	}
	result := make([]*grant.Grant, 0, len(roleIDs))
	for _, rid := range roleIDs {
		g, _ := s.activateLocked(userID, rid, grantedBy, t)
		result = append(result, copyGrant(g))
	}
	return result, nil
}

func (s *Store) ListActiveGrants(_ context.Context, userID id.UserID) ([]*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*grant.Grant
	for _, g := range s.grants {
		if g.UserID == userID && g.IsActive {
			result = append(result, copyGrant(g))
		}
	}
	slices.SortFunc(result, func(a, b *grant.Grant) int { return a.GrantedAt.Compare(b.GrantedAt) })
	return result, nil
}

func (s *Store) ListGrants(_ context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*grant.Grant
	for _, g := range s.grants {
		if filter != nil {
			if filter.UserID != nil && g.UserID != *filter.UserID {
				continue
			}
			if filter.RoleID != nil && g.RoleID != *filter.RoleID {
				continue
			}
			if !filter.IncludeInactive && !g.IsActive {
				continue
			}
		} else if !g.IsActive {
			continue
		}
		result = append(result, copyGrant(g))
	}
	slices.SortFunc(result, func(a, b *grant.Grant) int { return b.GrantedAt.Compare(a.GrantedAt) })
	if filter != nil {
		result = applyPagination(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountActiveGrantsForRole(_ context.Context, roleID id.RoleID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, g := range s.grants {
		if g.RoleID == roleID && g.IsActive {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.audits[e.ID.String()] = copyAudit(e)
	return nil
}

func (s *Store) GetAuditEntry(_ context.Context, entryID id.AuditID) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.audits[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, fault.ErrNotFound)
	}
	return copyAudit(e), nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*audit.Entry
	for _, e := range s.audits {
		if matchAudit(e, filter) {
			result = append(result, copyAudit(e))
		}
	}
	slices.SortFunc(result, func(a, b *audit.Entry) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if filter != nil {
		result = applyPagination(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountAuditEntries(_ context.Context, filter *audit.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.audits {
		if matchAudit(e, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.audits {
		if e.CreatedAt.Before(before) {
			delete(s.audits, k)
			n++
		}
	}
	return n, nil
}

func matchAudit(e *audit.Entry, f *audit.QueryFilter) bool {
	if f == nil {
		return true
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.SubjectID != nil && e.SubjectID != *f.SubjectID {
		return false
	}
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if f.Module != "" && e.Module != f.Module {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if f.After != nil && !e.CreatedAt.After(*f.After) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyModule(m *module.Module) *module.Module {
	c := *m
	c.Permissions = slices.Clone(m.Permissions)
	return &c
}

func copyRole(r *role.Role) *role.Role {
	c := *r
	c.Permissions = slices.Clone(r.Permissions)
	return &c
}

func copyUser(u *user.User) *user.User {
	c := *u
	if u.SupervisorID != nil {
		sid := *u.SupervisorID
		c.SupervisorID = &sid
	}
	return &c
}

func copyGrant(g *grant.Grant) *grant.Grant {
	c := *g
	if g.RevokedAt != nil {
		t := *g.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}

func copyAudit(e *audit.Entry) *audit.Entry {
	c := *e
	if e.Context != nil {
		c.Context = make(map[string]any, len(e.Context))
		for k, v := range e.Context {
			c.Context[k] = v
		}
	}
	return &c
}

func sortUsers(us []*user.User) {
	slices.SortFunc(us, func(a, b *user.User) int {
		return cmp.Or(cmp.Compare(a.DisplayName, b.DisplayName), cmp.Compare(a.ID.String(), b.ID.String()))
	})
}

func applyPagination[T any](items []*T, limit, offset int) []*T {
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
