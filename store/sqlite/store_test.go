package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/grantor/store"
	"github.com/xraph/grantor/store/storetest"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	drv := sqlitedriver.New()
	require.NoError(t, drv.Open(ctx, filepath.Join(t.TempDir(), "grantor.db")))
	db, err := grove.Open(drv)
	require.NoError(t, err)

	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestInConditionExpandsPlaceholders(t *testing.T) {
	c := inCondition("id", []string{"a", "b", "c"})
	assert.Equal(t, "id IN (?, ?, ?)", c.expr)
	assert.Equal(t, []any{"a", "b", "c"}, c.args)

	c = inCondition("role_id", []string{"x"})
	assert.Equal(t, "role_id IN (?)", c.expr)
}
