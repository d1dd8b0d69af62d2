// Package extension provides a Forge extension entry point for Bastion.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/cache"
	"github.com/xraph/bastion/catalog"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "bastion"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Module-scoped role-based authorization for asset management"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Bastion as a Forge extension.
type Extension struct {
	config     Config
	eng        *bastion.Engine
	logger     *slog.Logger
	engineOpts []bastion.Option
	plugins    []plugin.Plugin
	catalog    *catalog.Definition
	redis      redis.UniversalClient
}

// New creates a Bastion Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying Bastion engine.
func (e *Extension) Engine() *bastion.Engine { return e.eng }

// Register implements [forge.Extension]. It initializes the engine and
// registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	var fromContainer []bastion.Option
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		fromContainer = append(fromContainer, bastion.WithStore(s))
	}
	if err := e.init(fromContainer...); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*bastion.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("bastion: register engine in container: %w", err)
	}
	return nil
}

// init builds the engine. base options come first so user-provided ones
// may override them.
func (e *Extension) init(base ...bastion.Option) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	if e.config.SeedCatalog && e.catalog == nil {
		def, err := e.loadCatalog()
		if err != nil {
			return err
		}
		e.catalog = def
	}

	opts := make([]bastion.Option, 0, len(base)+len(e.engineOpts)+len(e.plugins)+4)
	opts = append(opts, bastion.WithLogger(logger), bastion.WithConfig(e.engineConfig()))
	opts = append(opts, base...)
	if c := e.buildCache(); c != nil {
		opts = append(opts, bastion.WithCache(c))
	}
	opts = append(opts, e.engineOpts...)
	for _, x := range e.plugins {
		opts = append(opts, bastion.WithPlugin(x))
	}

	eng, err := bastion.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("bastion: create engine: %w", err)
	}
	e.eng = eng
	return nil
}

func (e *Extension) loadCatalog() (*catalog.Definition, error) {
	if e.config.CatalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(e.config.CatalogPath)
}

func (e *Extension) engineConfig() bastion.Config {
	cfg := bastion.DefaultConfig()
	if e.config.CacheTTL > 0 {
		cfg.CacheTTL = e.config.CacheTTL
	}
	if e.config.MaxHierarchyDepth > 0 {
		cfg.MaxHierarchyDepth = e.config.MaxHierarchyDepth
	}
	cfg.AuditAllowedChecks = e.config.AuditAllowedChecks
	if e.catalog != nil {
		cfg.Equivalences = e.catalog.EquivalenceTable()
	}
	return cfg
}

func (e *Extension) buildCache() bastion.Cache {
	switch {
	case e.redis != nil:
		return cache.NewRedis(e.redis, cache.WithRedisTTL(e.engineConfig().CacheTTL))
	case e.config.CacheSize > 0:
		return cache.NewMemory(cache.WithMaxSize(e.config.CacheSize), cache.WithTTL(e.engineConfig().CacheTTL))
	default:
		return nil
	}
}

// Start runs migrations, seeds the catalog if enabled and warms the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("bastion: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.eng.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("bastion: migration failed: %w", err)
		}
	}

	if e.config.SeedCatalog && e.catalog != nil {
		sum, err := e.catalog.Apply(ctx, e.eng)
		if err != nil {
			return fmt.Errorf("bastion: seed catalog: %w", err)
		}
		e.log().Info("bastion: catalog applied",
			slog.Int("modules", sum.Modules),
			slog.Int("roles_created", sum.RolesCreated),
			slog.Int("roles_updated", sum.RolesUpdated),
		)
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the bastion engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("bastion: extension not initialized")
	}
	if err := e.eng.Store().Ping(ctx); err != nil {
		return fmt.Errorf("bastion: store: %w", err)
	}
	if e.redis != nil {
		if err := e.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("bastion: cache: %w", err)
		}
	}
	return nil
}

func (e *Extension) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
