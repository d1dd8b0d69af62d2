package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
)

// entry pairs a hook with the plugin name for logging.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	afterCheck        []entry[AfterCheck]
	moduleRegistered  []entry[ModuleRegistered]
	roleCreated       []entry[RoleCreated]
	roleUpdated       []entry[RoleUpdated]
	roleDeleted       []entry[RoleDeleted]
	roleGranted       []entry[RoleGranted]
	roleRevoked       []entry[RoleRevoked]
	rolesReplaced     []entry[RolesReplaced]
	supervisorChanged []entry[SupervisorChanged]
	shutdown          []entry[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// cache appends p to list when it implements H.
func cache[H any](list []entry[H], name string, p Plugin) []entry[H] {
	if h, ok := p.(H); ok {
		return append(list, entry[H]{name, h})
	}
	return list
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	r.afterCheck = cache(r.afterCheck, name, p)
	r.moduleRegistered = cache(r.moduleRegistered, name, p)
	r.roleCreated = cache(r.roleCreated, name, p)
	r.roleUpdated = cache(r.roleUpdated, name, p)
	r.roleDeleted = cache(r.roleDeleted, name, p)
	r.roleGranted = cache(r.roleGranted, name, p)
	r.roleRevoked = cache(r.roleRevoked, name, p)
	r.rolesReplaced = cache(r.rolesReplaced, name, p)
	r.supervisorChanged = cache(r.supervisorChanged, name, p)
	r.shutdown = cache(r.shutdown, name, p)
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Check event emitters
// ──────────────────────────────────────────────────

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, userID id.UserID, moduleName string, perm permission.Name, allowed bool, code string) {
	if len(r.afterCheck) == 0 {
		return
	}
	ev := CheckEvent{UserID: userID, Module: moduleName, Permission: perm, Allowed: allowed, Code: code}
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, ev); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Catalog and role event emitters
// ──────────────────────────────────────────────────

// EmitModuleRegistered notifies all plugins that implement ModuleRegistered.
func (r *Registry) EmitModuleRegistered(ctx context.Context, m *module.Module) {
	for _, e := range r.moduleRegistered {
		if err := e.hook.OnModuleRegistered(ctx, m); err != nil {
			r.logHookError("OnModuleRegistered", e.name, err)
		}
	}
}

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Assignment event emitters
// ──────────────────────────────────────────────────

// EmitRoleGranted notifies all plugins that implement RoleGranted.
func (r *Registry) EmitRoleGranted(ctx context.Context, g *grant.Grant) {
	for _, e := range r.roleGranted {
		if err := e.hook.OnRoleGranted(ctx, g); err != nil {
			r.logHookError("OnRoleGranted", e.name, err)
		}
	}
}

// EmitRoleRevoked notifies all plugins that implement RoleRevoked.
func (r *Registry) EmitRoleRevoked(ctx context.Context, g *grant.Grant) {
	for _, e := range r.roleRevoked {
		if err := e.hook.OnRoleRevoked(ctx, g); err != nil {
			r.logHookError("OnRoleRevoked", e.name, err)
		}
	}
}

// EmitRolesReplaced notifies all plugins that implement RolesReplaced.
func (r *Registry) EmitRolesReplaced(ctx context.Context, userID id.UserID, active []*grant.Grant) {
	for _, e := range r.rolesReplaced {
		if err := e.hook.OnRolesReplaced(ctx, userID, active); err != nil {
			r.logHookError("OnRolesReplaced", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Hierarchy event emitters
// ──────────────────────────────────────────────────

// EmitSupervisorChanged notifies all plugins that implement SupervisorChanged.
func (r *Registry) EmitSupervisorChanged(ctx context.Context, userID id.UserID, supervisorID *id.UserID) {
	for _, e := range r.supervisorChanged {
		if err := e.hook.OnSupervisorChanged(ctx, userID, supervisorID); err != nil {
			r.logHookError("OnSupervisorChanged", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors are never propagated.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
