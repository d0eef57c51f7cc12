//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/tessera/internal/domain"
)

func TestUpsertBatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t, ctx)

	repo := NewObservationRepository(pool)
	integrations := NewIntegrationRepository(pool)

	userID := uuid.NewString()
	integration, err := integrations.Create(ctx, domain.Integration{
		Vendor: domain.SourceWithings,
		UserID: userID,
	})
	require.NoError(t, err)

	observedAt := time.Date(2024, time.March, 10, 7, 30, 0, 0, time.UTC)
	readings := []domain.Reading{
		{
			Source:        domain.SourceWithings,
			Type:          "weight",
			Label:         "Weight",
			Unit:          "kg",
			Value:         82.5,
			ObservedAt:    observedAt,
			UserID:        userID,
			IntegrationID: integration.ID,
		},
		{
			Source:        domain.SourceWithings,
			Type:          "fat_ratio",
			Label:         "Fat Ratio",
			Unit:          "%",
			Value:         21.3,
			ObservedAt:    observedAt,
			UserID:        userID,
			IntegrationID: integration.ID,
		},
	}

	count, err := repo.UpsertBatch(ctx, readings)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Same window again with a corrected value: row count stays flat, the
	// value column takes the latest write.
	readings[0].Value = 82.7
	count, err = repo.UpsertBatch(ctx, readings)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	var total int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM observations WHERE user_id=$1`, userID).Scan(&total))
	require.Equal(t, 2, total)

	points, err := repo.TrendByType(ctx, userID, "weight", domain.DateBounds{}, 0)
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.NotNil(t, points[0].Value)
	require.Equal(t, 82.7, *points[0].Value)
}

func TestDeleteByIntegrationCascades(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t, ctx)

	repo := NewObservationRepository(pool)
	integrations := NewIntegrationRepository(pool)

	userID := uuid.NewString()
	integration, err := integrations.Create(ctx, domain.Integration{
		Vendor:         domain.SourceGarmin,
		GarminEmail:    "cipher-text",
		GarminPassword: "cipher-text",
		UserID:         userID,
	})
	require.NoError(t, err)

	_, err = repo.UpsertBatch(ctx, []domain.Reading{
		{
			Source:        domain.SourceGarmin,
			Type:          "sleep_score",
			Label:         "Sleep Score",
			Value:         85,
			ObservedAt:    time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			UserID:        userID,
			IntegrationID: integration.ID,
		},
	})
	require.NoError(t, err)

	deleted, err := integrations.Delete(ctx, userID, "garmin")
	require.NoError(t, err)
	require.Equal(t, integration.ID, deleted.ID)

	removed, err := repo.DeleteByIntegration(ctx, userID, deleted.ID, deleted.Vendor)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	var total int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM observations WHERE user_id=$1`, userID).Scan(&total))
	require.Equal(t, 0, total)
}

func TestImportRowsOverwritesWholeDay(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t, ctx)

	repo := NewSnapshotRepository(pool)
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	count, err := repo.ImportRows(ctx, []domain.Snapshot{
		{Date: day, Values: map[string]float64{"weight_kg": 81.2, "calories_kcal": 2400}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Re-import of the same day without calories: the column goes NULL
	// instead of keeping the stale value.
	count, err = repo.ImportRows(ctx, []domain.Snapshot{
		{Date: day, Values: map[string]float64{"weight_kg": 81.0}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	weights, err := repo.TrendByColumn(ctx, "weight_kg", domain.DateBounds{}, 0)
	require.NoError(t, err)
	require.Len(t, weights, 1)
	require.Equal(t, 81.0, *weights[0].Value)

	calories, err := repo.TrendByColumn(ctx, "calories_kcal", domain.DateBounds{}, 0)
	require.NoError(t, err)
	require.Len(t, calories, 1)
	require.Nil(t, calories[0].Value)
}

func startDatabase(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("tessera"),
		postgrescontainer.WithUsername("tessera"),
		postgrescontainer.WithPassword("tessera"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
