package extension

import "time"

// Config holds the Bastion extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.bastion" or "bastion" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// SeedCatalog applies the catalog (WithCatalog, CatalogPath or the
	// embedded default) on start.
	SeedCatalog bool `json:"seed_catalog" mapstructure:"seed_catalog" yaml:"seed_catalog"`

	// CatalogPath points at a catalog YAML file. Empty means the embedded
	// default.
	CatalogPath string `json:"catalog_path" mapstructure:"catalog_path" yaml:"catalog_path"`

	// CacheSize bounds the in-process profile cache. Zero disables it
	// unless a Redis client is supplied.
	CacheSize int `json:"cache_size" mapstructure:"cache_size" yaml:"cache_size"`

	// CacheTTL bounds cached profile lifetime.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// MaxHierarchyDepth limits supervisor chain walks.
	MaxHierarchyDepth int `json:"max_hierarchy_depth" mapstructure:"max_hierarchy_depth" yaml:"max_hierarchy_depth"`

	// AuditAllowedChecks records allowed Check* outcomes too.
	AuditAllowedChecks bool `json:"audit_allowed_checks" mapstructure:"audit_allowed_checks" yaml:"audit_allowed_checks"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheSize:         10000,
		CacheTTL:          5 * time.Minute,
		MaxHierarchyDepth: 64,
	}
}
