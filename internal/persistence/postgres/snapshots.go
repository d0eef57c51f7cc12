package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tessera/internal/domain"
)

// SnapshotRepository owns the wide daily nutrition table: one row per
// calendar day, imported wholesale. A re-import of a day overwrites the
// entire row rather than merging field by field.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository constructs a SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// upsertSnapshotQuery is built once from the column catalog so the statement
// always covers the full fixed column set.
var upsertSnapshotQuery = func() string {
	cols := []string{"id", "date"}
	cols = append(cols, domain.SnapshotColumns...)
	cols = append(cols, "imported_at")

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	assignments := make([]string, 0, len(domain.SnapshotColumns)+1)
	for _, col := range domain.SnapshotColumns {
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	assignments = append(assignments, "imported_at = EXCLUDED.imported_at")

	return fmt.Sprintf(
		"INSERT INTO macrofactor_daily (%s) VALUES (%s) ON CONFLICT (date) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(assignments, ", "),
	)
}()

// ImportRows overwrites one row per day. Invalid rows fail individually;
// valid rows still land. Returns the number of rows written.
func (r *SnapshotRepository) ImportRows(ctx context.Context, snapshots []domain.Snapshot) (int, error) {
	count := 0
	now := time.Now().UTC()

	for _, snapshot := range snapshots {
		if err := snapshot.Validate(); err != nil {
			continue
		}

		args := make([]interface{}, 0, len(domain.SnapshotColumns)+3)
		args = append(args, uuid.NewString(), snapshot.Date.UTC())
		for _, col := range domain.SnapshotColumns {
			if value, ok := snapshot.Values[col]; ok {
				args = append(args, value)
			} else {
				args = append(args, nil)
			}
		}
		args = append(args, now)

		if _, err := r.pool.Exec(ctx, upsertSnapshotQuery, args...); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// TrendByColumn reads one wide-table column as a time series, ordered by
// date ascending. The column must come from the fixed catalog; anything
// else is rejected before it reaches SQL.
func (r *SnapshotRepository) TrendByColumn(ctx context.Context, column string, bounds domain.DateBounds, limit int) ([]domain.TrendPoint, error) {
	if !domain.KnownSnapshotColumn(column) {
		return nil, fmt.Errorf("unknown snapshot column %q", column)
	}

	query := fmt.Sprintf(`SELECT date, %s FROM macrofactor_daily`, column)
	var args []interface{}
	var conditions []string

	if bounds.Start != nil {
		args = append(args, bounds.Start.UTC())
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if bounds.End != nil {
		args = append(args, bounds.End.UTC())
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY date ASC"
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
		if err := rows.Scan(&point.Date, &point.Value); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
