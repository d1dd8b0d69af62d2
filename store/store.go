// Package store defines the aggregate persistence interface. Each entity
// package (module, role, user, grant, audit) defines its own store
// interface and the composite Store embeds them all. Backends: Memory,
// Postgres, SQLite and MongoDB.
//
// Backends report missing entities with fault.ErrNotFound and uniqueness
// violations with fault.ErrConflict in the error chain.
package store

import (
	"context"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/user"
)

// Store is the aggregate persistence interface.
type Store interface {
	module.Store
	role.Store
	user.Store
	grant.Store
	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
