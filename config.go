package bastion

import "time"

// Config holds configuration for the Bastion engine.
type Config struct {
	// CacheTTL bounds how long a cached access profile may live. It only
	// limits memory; mutations invalidate profiles immediately.
	// Defaults to 5 minutes.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// MaxHierarchyDepth limits the supervisor chain walk. Defaults to 64.
	MaxHierarchyDepth int `json:"max_hierarchy_depth,omitempty"`

	// SystemAdminRole is the role name IsSystemAdmin looks for.
	// Defaults to "system_admin".
	SystemAdminRole string `json:"system_admin_role,omitempty"`

	// AuditAllowedChecks records allowed Check* outcomes as well as
	// denials.
	AuditAllowedChecks bool `json:"audit_allowed_checks,omitempty"`

	// Equivalences lists permissions that satisfy other permissions.
	// A nil table disables equivalence.
	Equivalences Equivalences `json:"equivalences,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:          5 * time.Minute,
		MaxHierarchyDepth: 64,
		SystemAdminRole:   "system_admin",
		Equivalences:      DefaultEquivalences(),
	}
}

func (c Config) maxDepth() int {
	if c.MaxHierarchyDepth <= 0 {
		return 64
	}
	return c.MaxHierarchyDepth
}

func (c Config) adminRole() string {
	if c.SystemAdminRole == "" {
		return "system_admin"
	}
	return c.SystemAdminRole
}
