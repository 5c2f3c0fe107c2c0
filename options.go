package grantor

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/grantor/plugin"
	"github.com/xraph/grantor/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithCache sets the resolve result cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithClock overrides the time source used for timestamps, expiry checks
// and Summary.ComputedAt.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithValidator replaces the input validator, e.g. to register custom tags.
func WithValidator(v *validator.Validate) Option { return func(e *Engine) { e.validate = v } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
