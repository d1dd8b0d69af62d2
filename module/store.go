package module

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for modules.
type Store interface {
	// UpsertModule creates the module or updates the row with the same name.
	// On update the stored ID and CreatedAt win and are written back to m.
	UpsertModule(ctx context.Context, m *Module) error

	// GetModule retrieves a module by ID.
	GetModule(ctx context.Context, moduleID id.ModuleID) (*Module, error)

	// GetModuleByName retrieves a module by its unique name.
	GetModuleByName(ctx context.Context, name string) (*Module, error)

	// ListModules returns all modules ordered by sort order, then name.
	ListModules(ctx context.Context) ([]*Module, error)
}
