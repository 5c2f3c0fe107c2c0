package extension

import "time"

// Config holds the grantor extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.grantor" or "grantor" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// EnsureBaseline installs the system permissions and roles on start.
	EnsureBaseline bool `json:"ensure_baseline" mapstructure:"ensure_baseline" yaml:"ensure_baseline"`

	// DisableCache turns off the in-process resolve cache. A cache passed
	// with WithEngineOptions(grantor.WithCache(...)) is used regardless.
	DisableCache bool `json:"disable_cache" mapstructure:"disable_cache" yaml:"disable_cache"`

	// CacheTTL bounds how long a resolve result is served from the cache.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// CacheSize is the maximum number of cached users.
	CacheSize int `json:"cache_size" mapstructure:"cache_size" yaml:"cache_size"`

	// Audit registers the audit log plugin with the extension's logger.
	Audit bool `json:"audit" mapstructure:"audit" yaml:"audit"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:  5 * time.Minute,
		CacheSize: 10000,
	}
}
