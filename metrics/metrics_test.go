package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/store/memory"
)

func TestPluginCountsResolvesAndMutations(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := New(reg)

	eng, err := grantor.NewEngine(grantor.WithStore(memory.New()), grantor.WithPlugin(p))
	require.NoError(t, err)

	perm, err := eng.Catalog().Create(ctx, &grantor.CreatePermissionInput{Name: "user.read", Resource: "user", Action: "read"})
	require.NoError(t, err)
	viewer, err := eng.Directory().Create(ctx, &grantor.CreateRoleInput{Name: "viewer", PermissionIDs: []id.PermissionID{perm.ID}})
	require.NoError(t, err)
	_, err = eng.Grants().AssignRoles(ctx, "u1", &grantor.AssignRolesInput{RoleIDs: []id.RoleID{viewer.ID}})
	require.NoError(t, err)

	_, err = eng.Resolve(ctx, "u1")
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(p.resolves.WithLabelValues(OutcomeOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.mutations.WithLabelValues("permission", "create")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.mutations.WithLabelValues("role", "create")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.mutations.WithLabelValues("user_role", "replace")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(p.effectiveSize))
}

func TestPluginClassifiesFailures(t *testing.T) {
	ctx := context.Background()
	p := New(prometheus.NewRegistry())

	require.NoError(t, p.OnAfterResolve(ctx, "u1", nil, fmt.Errorf("%w: boom", grantor.ErrCancelled), time.Millisecond))
	require.NoError(t, p.OnAfterResolve(ctx, "u1", nil, errors.New("boom"), time.Millisecond))

	assert.InDelta(t, 1, testutil.ToFloat64(p.resolves.WithLabelValues(OutcomeCancelled)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.resolves.WithLabelValues(OutcomeError)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(p.resolves.WithLabelValues(OutcomeOK)), 0)
}
