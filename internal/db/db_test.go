package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("", PoolConfig{})
	assert.EqualError(t, err, "DATABASE_URL is not set")
	assert.Error(t, Migrate(nil))
	assert.Error(t, MigrateUp(""))
	assert.Error(t, MigrateDown("postgres://unused", 0))
}

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("sketchparty"),
		postgres.WithUsername("sketch"),
		postgres.WithPassword("sketch"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestMigrations(t *testing.T) {
	dsn := startPostgres(t)

	require.NoError(t, MigrateUp(dsn))
	require.NoError(t, MigrateUp(dsn))
	version, dirty, err := MigrationVersion(dsn)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 20251027090000, version)

	conn, err := Open(dsn, PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	assert.True(t, conn.Migrator().HasTable(&GameSession{}))
	assert.True(t, conn.Migrator().HasTable(&PlayerStats{}))
	assert.True(t, conn.Migrator().HasTable(&Event{}))

	require.NoError(t, MigrateDown(dsn, 1))
	assert.False(t, conn.Migrator().HasTable(&Event{}))
	version, _, err = MigrationVersion(dsn)
	require.NoError(t, err)
	assert.EqualValues(t, 20251020120000, version)

	require.NoError(t, Migrate(conn))
	assert.True(t, conn.Migrator().HasTable(&Event{}))
}
