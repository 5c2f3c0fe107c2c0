package grantor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/grantor/plugin"
	"github.com/xraph/grantor/store"
)

// Engine is the central RBAC engine. It owns the store, cache and plugin
// registry and hands out the catalog, directory, grant, resolver and
// seeder components that share them. It holds no other cross-call state
// and is safe for concurrent use.
type Engine struct {
	store    store.Store
	cache    Cache
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
	now      func() time.Time
	validate *validator.Validate

	// cacheGen counts invalidations. Resolve only caches a result when no
	// invalidation ran between its store reads and the cache write.
	cacheMu  sync.Mutex
	cacheGen uint64

	catalog   *Catalog
	directory *Directory
	grants    *Grants
	resolver  *Resolver
	seeder    *Seeder
}

// NewEngine creates a new grantor engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("grantor: store is required")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.validate == nil {
		e.validate = newValidator()
	}

	e.catalog = &Catalog{engine: e}
	e.directory = &Directory{engine: e}
	e.grants = &Grants{engine: e}
	e.resolver = &Resolver{engine: e}
	e.seeder = &Seeder{engine: e}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Logger returns the engine's structured logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Catalog returns the permission catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Directory returns the role directory.
func (e *Engine) Directory() *Directory { return e.directory }

// Grants returns the user grant store.
func (e *Engine) Grants() *Grants { return e.grants }

// Resolver returns the effective permission resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Seeder returns the bootstrap seeder.
func (e *Engine) Seeder() *Seeder { return e.seeder }

// Resolve is shorthand for e.Resolver().Resolve.
func (e *Engine) Resolve(ctx context.Context, userID string) (*EffectivePermissions, error) {
	return e.resolver.Resolve(ctx, userID)
}

// Has is shorthand for e.Resolver().Has.
func (e *Engine) Has(ctx context.Context, userID, resource, action string) (bool, error) {
	return e.resolver.Has(ctx, userID, resource, action)
}

// Start verifies the store is reachable.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return storageError(ctx, "ping", err)
	}
	return nil
}

// Stop notifies plugins of shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// validateInput runs struct-tag validation and reports the first failing
// field as an ErrInvalidInput.
func (e *Engine) validateInput(entity string, in any) error {
	if in == nil {
		return invalidInput(entity, "input", "", errors.New("input is required"))
	}
	if err := e.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invalidInput(entity, fe.Field(), fmt.Sprint(fe.Value()), err)
		}
		return invalidInput(entity, "input", "", err)
	}
	return nil
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fresh reports whether a cached result is still within Config.CacheTTL.
func (e *Engine) fresh(ep *EffectivePermissions) bool {
	ttl := e.config.CacheTTL
	return ttl <= 0 || e.now().Sub(ep.Summary.ComputedAt) < ttl
}

// cacheGeneration returns the current invalidation generation. Read it
// before the store reads a cached result is computed from.
func (e *Engine) cacheGeneration() uint64 {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	return e.cacheGen
}

// cacheResult stores result unless an invalidation happened after gen
// was read, in which case result may predate a committed mutation.
func (e *Engine) cacheResult(ctx context.Context, userID string, result *EffectivePermissions, gen uint64) {
	if e.cache == nil {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if e.cacheGen != gen {
		return
	}
	e.cache.Set(ctx, userID, result)
}

// invalidateUser drops one user's cached result.
func (e *Engine) invalidateUser(ctx context.Context, userID string) {
	if e.cache == nil {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cacheGen++
	e.cache.InvalidateUser(ctx, userID)
}

// invalidateAll drops every cached result. Role and permission changes can
// affect any user holding them.
func (e *Engine) invalidateAll(ctx context.Context) {
	if e.cache == nil {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cacheGen++
	e.cache.InvalidateAll(ctx)
}
