// Package metrics provides a grantor plugin that exports Prometheus metrics
// for resolves and mutations.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
	"github.com/xraph/grantor/plugin"
	"github.com/xraph/grantor/role"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Plugin)(nil)
	_ plugin.AfterResolve            = (*Plugin)(nil)
	_ plugin.PermissionCreated       = (*Plugin)(nil)
	_ plugin.PermissionUpdated       = (*Plugin)(nil)
	_ plugin.PermissionDeleted       = (*Plugin)(nil)
	_ plugin.RoleCreated             = (*Plugin)(nil)
	_ plugin.RoleUpdated             = (*Plugin)(nil)
	_ plugin.RoleDeleted             = (*Plugin)(nil)
	_ plugin.RolePermissionsReplaced = (*Plugin)(nil)
	_ plugin.UserRolesReplaced       = (*Plugin)(nil)
	_ plugin.UserPermissionsReplaced = (*Plugin)(nil)
)

// Resolve outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Plugin records resolve counts, latency and result size, and counts
// mutations by entity and operation.
type Plugin struct {
	resolves      *prometheus.CounterVec
	duration      prometheus.Histogram
	effectiveSize prometheus.Histogram
	deniedSize    prometheus.Histogram
	mutations     *prometheus.CounterVec
}

// New creates the plugin and registers its collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Plugin {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Plugin{
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grantor_resolves_total",
			Help: "Effective permission resolves by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grantor_resolve_duration_seconds",
			Help:    "Duration of effective permission resolves.",
			Buckets: prometheus.DefBuckets,
		}),
		effectiveSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grantor_effective_permissions",
			Help:    "Number of effective permissions per resolve.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		deniedSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grantor_denied_permissions",
			Help:    "Number of vetoed permissions per resolve.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grantor_mutations_total",
			Help: "Catalog, directory and grant mutations by entity and operation.",
		}, []string{"entity", "op"}),
	}
	reg.MustRegister(p.resolves, p.duration, p.effectiveSize, p.deniedSize, p.mutations)
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "metrics" }

// OnAfterResolve implements plugin.AfterResolve.
func (p *Plugin) OnAfterResolve(_ context.Context, _ string, result any, err error, elapsed time.Duration) error {
	p.duration.Observe(elapsed.Seconds())
	switch {
	case errors.Is(err, grantor.ErrCancelled):
		p.resolves.WithLabelValues(OutcomeCancelled).Inc()
		return nil
	case err != nil:
		p.resolves.WithLabelValues(OutcomeError).Inc()
		return nil
	}
	p.resolves.WithLabelValues(OutcomeOK).Inc()
	if ep, ok := result.(*grantor.EffectivePermissions); ok && ep != nil {
		p.effectiveSize.Observe(float64(ep.Summary.EffectiveCount))
		p.deniedSize.Observe(float64(ep.Summary.DeniedCount))
	}
	return nil
}

// OnPermissionCreated implements plugin.PermissionCreated.
func (p *Plugin) OnPermissionCreated(context.Context, *permission.Permission) error {
	p.mutations.WithLabelValues("permission", "create").Inc()
	return nil
}

// OnPermissionUpdated implements plugin.PermissionUpdated.
func (p *Plugin) OnPermissionUpdated(context.Context, *permission.Permission) error {
	p.mutations.WithLabelValues("permission", "update").Inc()
	return nil
}

// OnPermissionDeleted implements plugin.PermissionDeleted.
func (p *Plugin) OnPermissionDeleted(context.Context, id.PermissionID) error {
	p.mutations.WithLabelValues("permission", "delete").Inc()
	return nil
}

// OnRoleCreated implements plugin.RoleCreated.
func (p *Plugin) OnRoleCreated(context.Context, *role.Role) error {
	p.mutations.WithLabelValues("role", "create").Inc()
	return nil
}

// OnRoleUpdated implements plugin.RoleUpdated.
func (p *Plugin) OnRoleUpdated(context.Context, *role.Role) error {
	p.mutations.WithLabelValues("role", "update").Inc()
	return nil
}

// OnRoleDeleted implements plugin.RoleDeleted.
func (p *Plugin) OnRoleDeleted(context.Context, id.RoleID) error {
	p.mutations.WithLabelValues("role", "delete").Inc()
	return nil
}

// OnRolePermissionsReplaced implements plugin.RolePermissionsReplaced.
func (p *Plugin) OnRolePermissionsReplaced(context.Context, id.RoleID, []*grant.RolePermission) error {
	p.mutations.WithLabelValues("role_permission", "replace").Inc()
	return nil
}

// OnUserRolesReplaced implements plugin.UserRolesReplaced.
func (p *Plugin) OnUserRolesReplaced(context.Context, string, []*grant.UserRole) error {
	p.mutations.WithLabelValues("user_role", "replace").Inc()
	return nil
}

// OnUserPermissionsReplaced implements plugin.UserPermissionsReplaced.
func (p *Plugin) OnUserPermissionsReplaced(context.Context, string, []*grant.UserPermission) error {
	p.mutations.WithLabelValues("user_permission", "replace").Inc()
	return nil
}
