// Package user defines the User entity as seen by authorization: account
// state and position in the supervisor hierarchy.
package user

import (
	"time"

	"github.com/xraph/bastion/id"
)

// User is an application account.
type User struct {
	ID           id.UserID  `json:"id" db:"id"`
	Login        string     `json:"login" db:"login"`
	DisplayName  string     `json:"display_name" db:"display_name"`
	Email        string     `json:"email,omitempty" db:"email"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	SupervisorID *id.UserID `json:"supervisor_id,omitempty" db:"supervisor_id"`
	Department   string     `json:"department,omitempty" db:"department"`
	Branch       string     `json:"branch,omitempty" db:"branch"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing users.
type ListFilter struct {
	Active     *bool  `json:"active,omitempty"`
	Department string `json:"department,omitempty"`
	Search     string `json:"search,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
