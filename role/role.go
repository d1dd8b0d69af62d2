// Package role defines the Role entity and its store interface.
package role

import (
	"time"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
)

// Role is a named bundle of permissions scoped to exactly one module.
type Role struct {
	ID          id.RoleID         `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description,omitempty" db:"description"`
	ModuleID    id.ModuleID       `json:"module_id" db:"module_id"`
	ModuleName  string            `json:"module" db:"module_name"`
	Permissions []permission.Name `json:"permissions" db:"permissions"`
	IsSystem    bool              `json:"is_system" db:"is_system"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// PermissionSet returns the role's permissions as a set.
func (r *Role) PermissionSet() permission.Set {
	return permission.NewSet(r.Permissions...)
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	ModuleName string `json:"module,omitempty"`
	IsSystem   *bool  `json:"is_system,omitempty"`
	Search     string `json:"search,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// MutateOptions carries caller policy for role changes.
type MutateOptions struct {
	// Elevated permits changes to system roles.
	Elevated bool
}

// MutateOption configures a role change.
type MutateOption func(*MutateOptions)

// Elevated allows the change to touch a system role. Callers decide who
// may pass it.
func Elevated() MutateOption {
	return func(o *MutateOptions) { o.Elevated = true }
}

// ApplyOptions folds opts into a MutateOptions value.
func ApplyOptions(opts []MutateOption) MutateOptions {
	var o MutateOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Option sets optional fields on a new role.
type Option func(*Role)

// WithDescription sets the role description.
func WithDescription(desc string) Option {
	return func(r *Role) { r.Description = desc }
}
