package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/store"
	"github.com/xraph/grantor/store/memory"
)

type brokenStore struct {
	*memory.Store
}

func (brokenStore) ListRoleAssignments(context.Context, string) ([]*grant.RoleAssignment, error) {
	return nil, errors.New("connection reset")
}

func newEngine(t *testing.T, buf *bytes.Buffer, s store.Store) *grantor.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(buf, nil))
	eng, err := grantor.NewEngine(grantor.WithLogger(logger), grantor.WithStore(s))
	require.NoError(t, err)
	return eng
}

func TestResolveUserLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	eng := newEngine(t, &buf, brokenStore{Store: memory.New()})

	ep, ok := resolveUser(grantor.WithUser(context.Background(), "u1"), eng)
	assert.False(t, ok)
	assert.Nil(t, ep)
	assert.Contains(t, buf.String(), "authorization resolve failed")
	assert.Contains(t, buf.String(), "user_id=u1")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestResolveUserDeniesAnonymousQuietly(t *testing.T) {
	var buf bytes.Buffer
	eng := newEngine(t, &buf, memory.New())

	_, ok := resolveUser(context.Background(), eng)
	assert.False(t, ok)
	assert.Empty(t, buf.String())
}

func TestResolveUserReturnsPermissions(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	eng := newEngine(t, &buf, memory.New())

	p, err := eng.Catalog().Create(ctx, &grantor.CreatePermissionInput{Name: "doc.read", Resource: "doc", Action: "read"})
	require.NoError(t, err)
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &grantor.AssignPermissionsInput{PermissionIDs: []id.PermissionID{p.ID}})
	require.NoError(t, err)

	ep, ok := resolveUser(grantor.WithUser(ctx, "u1"), eng)
	require.True(t, ok)
	assert.True(t, ep.Grants("doc", "read"))
	assert.False(t, ep.Grants("doc", "write"))
}
