package extension

import (
	"log/slog"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/plugin"
	"github.com/xraph/grantor/store"
)

// ExtOption configures the grantor Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.grantorOpts = append(e.grantorOpts, grantor.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...grantor.Option) ExtOption {
	return func(e *Extension) {
		e.grantorOpts = append(e.grantorOpts, opts...)
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

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithEnsureBaseline seeds the system permissions and roles on start.
func WithEnsureBaseline() ExtOption {
	return func(e *Extension) {
		e.config.EnsureBaseline = true
	}
}

// WithAudit registers the audit log plugin.
func WithAudit() ExtOption {
	return func(e *Extension) {
		e.config.Audit = true
	}
}
