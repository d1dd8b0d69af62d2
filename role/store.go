package role

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for roles.
type Store interface {
	// CreateRole persists a new role. Duplicate names fail with a
	// conflict error.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (*Role, error)

	// GetRoles retrieves the roles with the given IDs. Missing IDs are
	// skipped; callers compare lengths when they need all of them.
	GetRoles(ctx context.Context, roleIDs []id.RoleID) ([]*Role, error)

	// UpdateRole persists changes to a role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role by ID.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns roles matching the filter, ordered by name.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)
}
