package grantor

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds configuration for the grantor engine.
type Config struct {
	// EnforceExpiry discards grant edges whose ExpiresAt is set and not
	// after the current time before resolving. Defaults to true; set it to
	// false to honor expired grants during a grace period.
	EnforceExpiry *bool `json:"enforce_expiry,omitempty" envconfig:"ENFORCE_EXPIRY" default:"true"`

	// CacheTTL caps how long the engine serves a cached resolve result,
	// measured from its ComputedAt and independent of the cache backend's
	// own expiry. Zero leaves expiry to the backend.
	CacheTTL time.Duration `json:"cache_ttl,omitempty" envconfig:"CACHE_TTL" default:"0s"`

	// DefaultPageSize is used by Search when the page size is zero.
	DefaultPageSize int `json:"default_page_size,omitempty" envconfig:"DEFAULT_PAGE_SIZE" default:"20"`

	// MaxPageSize caps the page size accepted by Search.
	MaxPageSize int `json:"max_page_size,omitempty" envconfig:"MAX_PAGE_SIZE" default:"100"`

	// SuperAdminRole is the name of the system role granted every permission
	// by EnsureSystemBaseline.
	SuperAdminRole string `json:"super_admin_role,omitempty" envconfig:"SUPER_ADMIN_ROLE" default:"super_admin"`

	// AdminRole is the name of the secondary system role.
	AdminRole string `json:"admin_role,omitempty" envconfig:"ADMIN_ROLE" default:"admin"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		EnforceExpiry:   &t,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		SuperAdminRole:  "super_admin",
		AdminRole:       "admin",
	}
}

// ConfigFromEnv loads a Config from GRANTOR_* environment variables,
// e.g. GRANTOR_ENFORCE_EXPIRY=false or GRANTOR_CACHE_TTL=30s.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("grantor", &cfg); err != nil {
		return Config{}, fmt.Errorf("grantor: load config: %w", err)
	}
	return cfg, nil
}

func (c Config) expiryEnforced() bool { return c.EnforceExpiry == nil || *c.EnforceExpiry }

func (c Config) superAdminRole() string {
	if c.SuperAdminRole == "" {
		return "super_admin"
	}
	return c.SuperAdminRole
}

func (c Config) adminRole() string {
	if c.AdminRole == "" {
		return "admin"
	}
	return c.AdminRole
}

// pageBounds converts a zero-based page into limit/offset.
func (c Config) pageBounds(p Page) (limit, offset int) {
	size := p.Size
	if size <= 0 {
		size = c.DefaultPageSize
	}
	if size <= 0 {
		size = 20
	}
	if c.MaxPageSize > 0 && size > c.MaxPageSize {
		size = c.MaxPageSize
	}
	index := p.Index
	if index < 0 {
		index = 0
	}
	return size, index * size
}
