// Package extension provides a Forge extension entry point for grantor.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/api"
	"github.com/xraph/grantor/audit"
	"github.com/xraph/grantor/cache"
	"github.com/xraph/grantor/plugin"
	"github.com/xraph/grantor/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "grantor"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Role-based access control with effective-permission resolution"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts grantor as a Forge extension.
type Extension struct {
	config      Config
	eng         *grantor.Engine
	apiHandler  *api.API
	logger      *slog.Logger
	grantorOpts []grantor.Option
	plugins     []plugin.Plugin
}

// New creates a grantor Forge extension with the given options.
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

// Engine returns the underlying grantor engine.
func (e *Extension) Engine() *grantor.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*grantor.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("grantor: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := make([]grantor.Option, 0, len(e.grantorOpts)+len(e.plugins)+4)
	opts = append(opts, grantor.WithLogger(logger))

	// Store from the DI container; an option-provided store overrides it.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, grantor.WithStore(s))
	}

	if !e.config.DisableCache {
		opts = append(opts, grantor.WithCache(cache.NewMemory(
			cache.WithTTL(e.config.CacheTTL),
			cache.WithMaxSize(e.config.CacheSize),
		)))
	}

	opts = append(opts, e.grantorOpts...)

	if e.config.Audit {
		opts = append(opts, grantor.WithPlugin(audit.New(logger)))
	}
	for _, x := range e.plugins {
		opts = append(opts, grantor.WithPlugin(x))
	}

	eng, err := grantor.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("grantor: create engine: %w", err)
	}
	e.eng = eng

	e.apiHandler = api.New(eng, fapp.Router())

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("grantor: register routes: %w", err)
		}
	}

	return nil
}

// Start runs migrations and seeds the system baseline when enabled, then
// starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("grantor: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if s := e.eng.Store(); s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("grantor: migration failed: %w", err)
			}
		}
	}

	if err := e.eng.Start(ctx); err != nil {
		return err
	}

	if e.config.EnsureBaseline {
		if _, err := e.eng.Seeder().EnsureSystemBaseline(ctx); err != nil {
			return fmt.Errorf("grantor: ensure baseline: %w", err)
		}
	}
	return nil
}

// Stop gracefully shuts down the grantor engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("grantor: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("grantor: no store configured")
	}
	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all grantor API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
