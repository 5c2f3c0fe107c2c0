package grantor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/permission"
)

// Resolver computes effective permissions. It holds no state of its own;
// every call reads the current edges from the store.
type Resolver struct {
	engine *Engine
}

// Resolve returns the effective permissions of userID.
//
// The role assignments and direct grants are read concurrently and both
// reads complete before folding. A cancelled context yields ErrCancelled
// and never a partial result.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*EffectivePermissions, error) {
	e := r.engine
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: resolve: %w", ErrCancelled, err)
	}
	var gen uint64
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, userID); ok && e.fresh(cached) {
			return cached, nil
		}
		gen = e.cacheGeneration()
	}
	if e.plugins != nil {
		e.plugins.EmitBeforeResolve(ctx, userID)
	}

	start := time.Now()
	result, err := r.resolve(ctx, userID)
	if err != nil {
		if e.plugins != nil {
			e.plugins.EmitAfterResolve(ctx, userID, nil, err, time.Since(start))
		}
		return nil, err
	}
	if e.plugins != nil {
		e.plugins.EmitAfterResolve(ctx, userID, result, nil, time.Since(start))
	}
	e.cacheResult(ctx, userID, result, gen)
	return result, nil
}

func (r *Resolver) resolve(ctx context.Context, userID string) (*EffectivePermissions, error) {
	e := r.engine

	var (
		assignments []*grant.RoleAssignment
		direct      []*grant.DirectGrant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assignments, err = e.grants.RoleAssignmentsOf(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		direct, err = e.grants.DirectGrantsOf(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: resolve: %w", ErrCancelled, ctxErr)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: resolve: %w", ErrCancelled, err)
	}

	return Fold(userID, assignments, direct, FoldOptions{
		Now:           e.now(),
		EnforceExpiry: e.config.expiryEnforced(),
	}), nil
}

// Has reports whether userID holds an effective permission covering
// resource and action.
func (r *Resolver) Has(ctx context.Context, userID, resource, action string) (bool, error) {
	ep, err := r.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	return ep.Grants(resource, action), nil
}

// FoldOptions controls Fold.
type FoldOptions struct {
	// Now is the evaluation instant, used for expiry and ComputedAt.
	Now time.Time

	// EnforceExpiry drops edges whose ExpiresAt is not after Now.
	EnforceExpiry bool
}

// Fold combines a user's role assignments and direct grants into the
// effective permission set. It performs no I/O and does not modify its
// inputs.
//
// A deny from any source vetoes the permission: a direct deny grant, any
// permission carried by a deny-assigned role, or a deny grant inside an
// allow-assigned role. The last source goes beyond the flat algorithm,
// which only counts direct denies and deny-assigned roles; a role-level
// deny grant is treated as a veto rather than as a grant that is simply
// left out. Role priority and hierarchy are not consulted.
func Fold(userID string, assignments []*grant.RoleAssignment, direct []*grant.DirectGrant, opts FoldOptions) *EffectivePermissions {
	expired := func(at *time.Time) bool {
		return opts.EnforceExpiry && grant.Expired(at, opts.Now)
	}

	// Hygiene: discard dangling and expired edges.
	roles := make([]*grant.RoleAssignment, 0, len(assignments))
	for _, a := range assignments {
		if a == nil || a.Role == nil || expired(a.ExpiresAt) {
			continue
		}
		kept := make([]*grant.RolePermissionGrant, 0, len(a.Permissions))
		for _, rp := range a.Permissions {
			if rp == nil || !rp.Permission.Live() || expired(rp.ExpiresAt) {
				continue
			}
			kept = append(kept, rp)
		}
		view := *a
		view.Permissions = kept
		roles = append(roles, &view)
	}
	grants := make([]*grant.DirectGrant, 0, len(direct))
	for _, d := range direct {
		if d == nil || !d.Permission.Live() || expired(d.ExpiresAt) {
			continue
		}
		grants = append(grants, d)
	}

	denied := make(map[id.PermissionID]struct{})
	allowRoles := 0
	for _, a := range roles {
		if a.Effect == grant.EffectDeny {
			for _, rp := range a.Permissions {
				denied[rp.PermissionID] = struct{}{}
			}
			continue
		}
		allowRoles++
		for _, rp := range a.Permissions {
			if rp.Effect == grant.EffectDeny {
				denied[rp.PermissionID] = struct{}{}
			}
		}
	}
	allowDirect := 0
	for _, d := range grants {
		if d.Effect == grant.EffectDeny {
			denied[d.PermissionID] = struct{}{}
		} else {
			allowDirect++
		}
	}

	seen := make(map[id.PermissionID]struct{})
	effective := make([]*permission.Permission, 0)
	add := func(p *permission.Permission) {
		if _, vetoed := denied[p.ID]; vetoed {
			return
		}
		if _, dup := seen[p.ID]; dup {
			return
		}
		seen[p.ID] = struct{}{}
		effective = append(effective, p)
	}
	for _, a := range roles {
		if a.Effect == grant.EffectDeny {
			continue
		}
		for _, rp := range a.Permissions {
			if rp.Effect != grant.EffectDeny {
				add(rp.Permission)
			}
		}
	}
	for _, d := range grants {
		if d.Effect != grant.EffectDeny {
			add(d.Permission)
		}
	}

	deniedIDs := make([]id.PermissionID, 0, len(denied))
	for pid := range denied {
		deniedIDs = append(deniedIDs, pid)
	}
	slices.SortFunc(deniedIDs, func(a, b id.PermissionID) int {
		return strings.Compare(a.String(), b.String())
	})

	return &EffectivePermissions{
		UserID:              userID,
		RoleAssignments:     roles,
		DirectPermissions:   grants,
		Permissions:         effective,
		DeniedPermissionIDs: deniedIDs,
		Summary: Summary{
			AllowedDirectCount:         allowDirect,
			DeniedCount:                len(deniedIDs),
			AllowedRoleAssignmentCount: allowRoles,
			EffectiveCount:             len(effective),
			ComputedAt:                 opts.Now,
		},
	}
}
