// Package plugin defines the plugin system for Bastion.
// Plugins are notified of lifecycle events (check evaluated, role granted,
// supervisor changed, etc.) and can react with logging, metrics or
// notifications.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// CheckEvent describes one evaluated permission check.
type CheckEvent struct {
	UserID     id.UserID
	Module     string
	Permission permission.Name
	Allowed    bool
	// Code is the decision code, e.g. "allow" or "deny_no_permission".
	Code string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// AfterCheck is called after a permission check is evaluated.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, ev CheckEvent) error
}

// ──────────────────────────────────────────────────
// Catalog and role lifecycle hooks
// ──────────────────────────────────────────────────

// ModuleRegistered is called after a module is created or updated.
type ModuleRegistered interface {
	OnModuleRegistered(ctx context.Context, m *module.Module) error
}

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role's permissions change.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// ──────────────────────────────────────────────────
// Assignment lifecycle hooks
// ──────────────────────────────────────────────────

// RoleGranted is called after a grant is created or reactivated.
type RoleGranted interface {
	OnRoleGranted(ctx context.Context, g *grant.Grant) error
}

// RoleRevoked is called after an active grant is deactivated.
type RoleRevoked interface {
	OnRoleRevoked(ctx context.Context, g *grant.Grant) error
}

// RolesReplaced is called after a user's role set is replaced. active
// holds the grants that are active afterwards.
type RolesReplaced interface {
	OnRolesReplaced(ctx context.Context, userID id.UserID, active []*grant.Grant) error
}

// ──────────────────────────────────────────────────
// Hierarchy lifecycle hooks
// ──────────────────────────────────────────────────

// SupervisorChanged is called after a user's supervisor is set or
// cleared (supervisorID nil).
type SupervisorChanged interface {
	OnSupervisorChanged(ctx context.Context, userID id.UserID, supervisorID *id.UserID) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
