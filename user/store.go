package user

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for users.
type Store interface {
	// CreateUser persists a new user. Duplicate logins fail with a
	// conflict error.
	CreateUser(ctx context.Context, u *User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID id.UserID) (*User, error)

	// GetUserByLogin retrieves a user by login.
	GetUserByLogin(ctx context.Context, login string) (*User, error)

	// UpdateUser persists profile and account-state changes.
	UpdateUser(ctx context.Context, u *User) error

	// SetSupervisor sets or clears (nil) the user's supervisor.
	SetSupervisor(ctx context.Context, userID id.UserID, supervisorID *id.UserID) error

	// ListSubordinates returns the direct reports of a user ordered by
	// display name.
	ListSubordinates(ctx context.Context, supervisorID id.UserID) ([]*User, error)

	// ListUsers returns users matching the filter ordered by display name.
	ListUsers(ctx context.Context, filter *ListFilter) ([]*User, error)
}
