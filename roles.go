package bastion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
)

// ──────────────────────────────────────────────────
// Permission catalog
// ──────────────────────────────────────────────────

// RegisterModule creates a module or updates the one with the same name.
// Permission names are normalized; dropping a permission that a role still
// carries fails with ErrVocabularyInUse.
func (e *Engine) RegisterModule(ctx context.Context, m *module.Module) (err error) {
	ctx, span := e.startSpan(ctx, "RegisterModule", trace.WithAttributes(attribute.String("bastion.module", m.Name)))
	defer func() { endSpan(span, err) }()

	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidModule)
	}
	vocab := permission.NewSet()
	for _, raw := range m.Permissions {
		n, perr := permission.Parse(string(raw))
		if perr != nil {
			return fmt.Errorf("%w: %w", ErrInvalidModule, perr)
		}
		vocab.Add(n)
	}
	m.Permissions = vocab.Sorted()

	roles, err := e.store.ListRoles(ctx, &role.ListFilter{ModuleName: m.Name})
	if err != nil {
		return storeErr("list module roles", err)
	}
	for _, r := range roles {
		if missing := r.PermissionSet().Missing(vocab); len(missing) > 0 {
			return fmt.Errorf("%w: role %s uses %v", ErrVocabularyInUse, r.Name, missing)
		}
	}

	if err := e.store.UpsertModule(ctx, m); err != nil {
		return storeErr("upsert module", err)
	}
	e.RefreshCatalog()
	if e.plugins != nil {
		e.plugins.EmitModuleRegistered(ctx, m)
	}
	return nil
}

// RecognizedPermissions returns the closed permission vocabulary of a
// module. Unknown modules fail with ErrModuleNotFound.
func (e *Engine) RecognizedPermissions(ctx context.Context, moduleName string) (permission.Set, error) {
	m, err := e.getModule(ctx, moduleName)
	if err != nil {
		return nil, err
	}
	return m.Vocabulary(), nil
}

// ListModules returns every module in catalog order.
func (e *Engine) ListModules(ctx context.Context) ([]*module.Module, error) {
	mods, err := e.store.ListModules(ctx)
	if err != nil {
		return nil, storeErr("list modules", err)
	}
	return mods, nil
}

func (e *Engine) getModule(ctx context.Context, moduleName string) (*module.Module, error) {
	if moduleName == "" {
		return nil, ErrMissingModule
	}
	m, err := e.store.GetModuleByName(ctx, moduleName)
	if err != nil {
		return nil, e.mapNotFound(err, ErrModuleNotFound, "get module")
	}
	return m, nil
}

// ──────────────────────────────────────────────────
// Role store
// ──────────────────────────────────────────────────

// CreateRole validates and persists a new role in the named module.
func (e *Engine) CreateRole(ctx context.Context, name, moduleName string, perms []permission.Name, isSystem bool, opts ...role.Option) (_ *role.Role, err error) {
	ctx, span := e.startSpan(ctx, "CreateRole", trace.WithAttributes(
		attribute.String("bastion.role", name),
		attribute.String("bastion.module", moduleName),
	))
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyRoleName
	}
	m, err := e.getModule(ctx, moduleName)
	if err != nil {
		return nil, err
	}
	set, err := validatePermissions(m, perms)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.GetRoleByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateRole, name)
	} else if !errors.Is(err, fault.ErrNotFound) {
		return nil, storeErr("get role by name", err)
	}

	r := &role.Role{
		ID:          id.NewRoleID(),
		Name:        name,
		ModuleID:    m.ID,
		ModuleName:  m.Name,
		Permissions: set.Sorted(),
		IsSystem:    isSystem,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := e.store.CreateRole(ctx, r); err != nil {
		if errors.Is(err, fault.ErrConflict) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRole, name)
		}
		return nil, storeErr("create role", err)
	}

	e.record(ctx, &audit.Entry{
		Kind:    audit.KindRole,
		Module:  m.Name,
		Reason:  "role created",
		Context: map[string]any{"role": r.Name, "permissions": set.Strings(), "is_system": isSystem},
	})
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, r)
	}
	return r, nil
}

// UpdateRolePermissions replaces a role's permission set. System roles
// require role.Elevated(). Every cached profile is invalidated.
func (e *Engine) UpdateRolePermissions(ctx context.Context, roleID id.RoleID, perms []permission.Name, opts ...role.MutateOption) (_ *role.Role, err error) {
	ctx, span := e.startSpan(ctx, "UpdateRolePermissions", trace.WithAttributes(attribute.String("bastion.role_id", roleID.String())))
	defer func() { endSpan(span, err) }()

	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if r.IsSystem && !role.ApplyOptions(opts).Elevated {
		return nil, fmt.Errorf("%w: %s", ErrSystemRoleImmutable, r.Name)
	}
	m, err := e.getModule(ctx, r.ModuleName)
	if err != nil {
		return nil, err
	}
	set, err := validatePermissions(m, perms)
	if err != nil {
		return nil, err
	}
	before := r.PermissionSet()
	r.Permissions = set.Sorted()
	if err := e.store.UpdateRole(ctx, r); err != nil {
		return nil, e.mapNotFound(err, ErrRoleNotFound, "update role")
	}
	if err := e.invalidateAll(ctx); err != nil {
		return r, err
	}

	e.record(ctx, &audit.Entry{
		Kind:    audit.KindRole,
		Module:  r.ModuleName,
		Reason:  "role permissions updated",
		Context: map[string]any{"role": r.Name, "before": before.Strings(), "after": set.Strings()},
	})
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	return r, nil
}

// DeleteRole removes a role no active grant references. System roles
// require role.Elevated().
func (e *Engine) DeleteRole(ctx context.Context, roleID id.RoleID, opts ...role.MutateOption) (err error) {
	ctx, span := e.startSpan(ctx, "DeleteRole", trace.WithAttributes(attribute.String("bastion.role_id", roleID.String())))
	defer func() { endSpan(span, err) }()

	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if r.IsSystem && !role.ApplyOptions(opts).Elevated {
		return fmt.Errorf("%w: %s", ErrSystemRoleImmutable, r.Name)
	}
	n, err := e.store.CountActiveGrantsForRole(ctx, roleID)
	if err != nil {
		return storeErr("count role grants", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s held by %d users", ErrRoleInUse, r.Name, n)
	}
	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		return storeErr("delete role", err)
	}
	if err := e.invalidateAll(ctx); err != nil {
		return err
	}

	e.record(ctx, &audit.Entry{
		Kind:    audit.KindRole,
		Module:  r.ModuleName,
		Reason:  "role deleted",
		Context: map[string]any{"role": r.Name},
	})
	if e.plugins != nil {
		e.plugins.EmitRoleDeleted(ctx, roleID)
	}
	return nil
}

// GetRole retrieves a role by ID.
func (e *Engine) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	if roleID.IsNil() {
		return nil, ErrMissingRole
	}
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, e.mapNotFound(err, ErrRoleNotFound, "get role")
	}
	return r, nil
}

// GetRoleByName retrieves a role by its unique name.
func (e *Engine) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	r, err := e.store.GetRoleByName(ctx, name)
	if err != nil {
		return nil, e.mapNotFound(err, ErrRoleNotFound, "get role by name")
	}
	return r, nil
}

// FindRolesByModule returns the module's roles ordered by name.
func (e *Engine) FindRolesByModule(ctx context.Context, moduleName string) ([]*role.Role, error) {
	if _, err := e.getModule(ctx, moduleName); err != nil {
		return nil, err
	}
	roles, err := e.store.ListRoles(ctx, &role.ListFilter{ModuleName: moduleName})
	if err != nil {
		return nil, storeErr("list roles", err)
	}
	return roles, nil
}

// RoleHolders returns the active grants of a role.
func (e *Engine) RoleHolders(ctx context.Context, roleID id.RoleID) ([]*grant.Grant, error) {
	if _, err := e.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	grants, err := e.store.ListGrants(ctx, &grant.ListFilter{RoleID: &roleID})
	if err != nil {
		return nil, storeErr("list role holders", err)
	}
	return grants, nil
}

// validatePermissions normalizes perms and checks them against the module
// vocabulary.
func validatePermissions(m *module.Module, perms []permission.Name) (permission.Set, error) {
	set := permission.NewSet()
	var invalid []string
	for _, raw := range perms {
		n, err := permission.Parse(string(raw))
		if err != nil {
			invalid = append(invalid, string(raw))
			continue
		}
		set.Add(n)
	}
	for _, n := range set.Missing(m.Vocabulary()) {
		invalid = append(invalid, string(n))
	}
	if len(invalid) > 0 {
		slices.Sort(invalid)
		return nil, fmt.Errorf("%w: module %s does not recognize %v", ErrUnknownPermission, m.Name, invalid)
	}
	return set, nil
}
