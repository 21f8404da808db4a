//go:build integration

package testutil

import (
	"context"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/bootstrap"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

// Postgres starts a throwaway postgres:16-alpine, migrates it and returns a
// connection. The test is skipped when Docker is unavailable.
func Postgres(t *testing.T) *gorm.DB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("videoverse"),
		postgres.WithUsername("videoverse"),
		postgres.WithPassword("videoverse"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, bootstrap.Migrate(db))
	return db
}
