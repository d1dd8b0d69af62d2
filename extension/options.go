package extension

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/catalog"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

// ExtOption configures the Bastion Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, bastion.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...bastion.Option) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithCatalog sets the catalog applied on start and supplies its
// equivalence rules to the engine.
func WithCatalog(d *catalog.Definition) ExtOption {
	return func(e *Extension) {
		e.catalog = d
		e.config.SeedCatalog = true
	}
}

// WithRedis shares the profile cache through Redis instead of process
// memory.
func WithRedis(client redis.UniversalClient) ExtOption {
	return func(e *Extension) {
		e.redis = client
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
