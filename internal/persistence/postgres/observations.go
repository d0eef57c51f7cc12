// Package postgres provides pgx-backed persistence for observations,
// integrations and daily nutrition snapshots.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tessera/internal/domain"
)

// ObservationRepository owns the canonical observation table and its
// dedup/upsert contract.
type ObservationRepository struct {
	pool *pgxpool.Pool
}

// NewObservationRepository constructs an ObservationRepository.
func NewObservationRepository(pool *pgxpool.Pool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

const upsertObservation = `INSERT INTO observations
        (id, source, type, label, unit, value, observed_at, user_id, integration_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (user_id, observed_at, type, source) DO UPDATE SET value = EXCLUDED.value`

// UpsertBatch writes readings row by row. On a dedup-key conflict only the
// value column is overwritten; observed_at and created_at keep their
// original provenance. Rows commit independently: a row failing validation
// is skipped without discarding the batch, and a write error leaves earlier
// rows committed, which is safe because the whole run can be retried
// wholesale. The returned count is the number of rows actually shipped.
func (r *ObservationRepository) UpsertBatch(ctx context.Context, readings []domain.Reading) (int, error) {
	count := 0
	now := time.Now().UTC()

	for _, reading := range readings {
		if err := reading.Validate(); err != nil {
			continue
		}

		tag, err := r.pool.Exec(ctx, upsertObservation,
			uuid.NewString(),
			string(reading.Source),
			reading.Type,
			reading.Label,
			nullIfEmpty(reading.Unit),
			reading.Value,
			reading.ObservedAt.UTC(),
			reading.UserID,
			reading.IntegrationID,
			now,
		)
		if err != nil {
			return count, err
		}
		count += int(tag.RowsAffected())
	}

	return count, nil
}

// TrendByType reads the sparse store for one canonical type, ordered by
// observation time ascending. limit <= 0 means unbounded.
func (r *ObservationRepository) TrendByType(ctx context.Context, userID, metricType string, bounds domain.DateBounds, limit int) ([]domain.TrendPoint, error) {
	query := `SELECT observed_at, label, unit, value FROM observations WHERE user_id=$1 AND type=$2`
	args := []interface{}{userID, metricType}

	if bounds.Start != nil {
		args = append(args, bounds.Start.UTC())
		query += fmt.Sprintf(" AND observed_at >= $%d", len(args))
	}
	if bounds.End != nil {
		args = append(args, bounds.End.UTC())
		query += fmt.Sprintf(" AND observed_at <= $%d", len(args))
	}

	query += " ORDER BY observed_at ASC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.TrendPoint
	for rows.Next() {
		var point domain.TrendPoint
		var unit *string
		var value float64
		if err := rows.Scan(&point.Date, &point.Label, &unit, &value); err != nil {
			return nil, err
		}
		if unit != nil {
			point.Unit = *unit
		}
		point.Value = &value
		points = append(points, point)
	}
	return points, rows.Err()
}

// DeleteByIntegration removes every observation that belongs to the
// integration or carries its vendor as source. Called when the user
// disconnects a vendor.
func (r *ObservationRepository) DeleteByIntegration(ctx context.Context, userID, integrationID string, vendor domain.Source) (int, error) {
	const query = `DELETE FROM observations WHERE user_id=$1 AND (integration_id=$2 OR source=$3)`
	tag, err := r.pool.Exec(ctx, query, userID, integrationID, string(vendor))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
