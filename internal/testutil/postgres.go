//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/emilythestrangee/housecup/backend/internal/config"
	"github.com/emilythestrangee/housecup/backend/internal/database"
)

// StartPostgres runs a throwaway Postgres container for the test and
// returns its connection settings.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("housecup"),
		tcpostgres.WithUsername("housecup"),
		tcpostgres.WithPassword("housecup"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     port.Port(),
		User:     "housecup",
		Password: "housecup",
		Name:     "housecup",
		SSLMode:  "disable",
	}
}

// SetupPostgresDB starts a container and returns a migrated database
func SetupPostgresDB(t *testing.T) (*database.Database, config.DatabaseConfig) {
	t.Helper()
	cfg := StartPostgres(t)

	db, err := database.New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return db, cfg
}
