// Package module defines the application Module entity and its store
// interface. A module is a functional area (equipment, asekuracja,
// employees, admin) with a closed permission vocabulary.
package module

import (
	"time"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
)

// Module is a functional area of the application.
type Module struct {
	ID          id.ModuleID       `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	DisplayName string            `json:"display_name" db:"display_name"`
	Description string            `json:"description,omitempty" db:"description"`
	Icon        string            `json:"icon,omitempty" db:"icon"`
	SortOrder   int               `json:"sort_order" db:"sort_order"`
	Permissions []permission.Name `json:"permissions" db:"permissions"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Vocabulary returns the module's permissions as a set.
func (m *Module) Vocabulary() permission.Set {
	return permission.NewSet(m.Permissions...)
}
