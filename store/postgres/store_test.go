//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/grantor/store"
	"github.com/xraph/grantor/store/storetest"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

const truncateAll = `TRUNCATE grantor_user_permissions, grantor_user_roles,
	grantor_role_permissions, grantor_roles, grantor_permissions`

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("grantor"),
		tcpostgres.WithUsername("grantor"),
		tcpostgres.WithPassword("grantor"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv := pgdriver.New()
	require.NoError(t, drv.Open(ctx, dsn))
	db, err := grove.Open(drv)
	require.NoError(t, err)

	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))

	// One container serves every subtest; each starts from empty tables.
	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		_, err := pgdriver.Unwrap(db).Exec(ctx, truncateAll)
		require.NoError(t, err)
		return s
	})
}
