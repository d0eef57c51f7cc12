package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tessera/internal/domain"
)

// IntegrationRepository owns the (user, vendor) connection table and the
// credential lifecycle: created on connect, tokens mutated in place on
// refresh, deleted on disconnect.
type IntegrationRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrationRepository constructs an IntegrationRepository.
func NewIntegrationRepository(pool *pgxpool.Pool) *IntegrationRepository {
	return &IntegrationRepository{pool: pool}
}

const integrationColumns = `id, vendor, access_token, refresh_token, external_user_id, scope, expires_at,
        garmin_email, garmin_password, user_id, created_at`

func scanIntegration(row pgx.Row) (*domain.Integration, error) {
	var integration domain.Integration
	var vendor string
	var accessToken, refreshToken, externalUserID, scope, garminEmail, garminPassword *string
	var expiresAt *time.Time

	err := row.Scan(
		&integration.ID,
		&vendor,
		&accessToken,
		&refreshToken,
		&externalUserID,
		&scope,
		&expiresAt,
		&garminEmail,
		&garminPassword,
		&integration.UserID,
		&integration.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	integration.Vendor = domain.Source(vendor)
	integration.AccessToken = deref(accessToken)
	integration.RefreshToken = deref(refreshToken)
	integration.ExternalUserID = deref(externalUserID)
	integration.Scope = deref(scope)
	integration.ExpiresAt = expiresAt
	integration.GarminEmail = deref(garminEmail)
	integration.GarminPassword = deref(garminPassword)
	return &integration, nil
}

// FindByVendor returns the user's connection for a vendor, or nil when the
// user is not connected.
func (r *IntegrationRepository) FindByVendor(ctx context.Context, userID string, vendor domain.Source) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE user_id=$1 AND vendor=$2`

	integration, err := scanIntegration(r.pool.QueryRow(ctx, query, userID, string(vendor)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return integration, nil
}

// ListByUser returns every connection the user holds.
func (r *IntegrationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE user_id=$1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []domain.Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *integration)
	}
	return integrations, rows.Err()
}

// Create persists a new connection.
func (r *IntegrationRepository) Create(ctx context.Context, integration domain.Integration) (*domain.Integration, error) {
	if integration.ID == "" {
		integration.ID = uuid.NewString()
	}
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO integrations
        (id, vendor, access_token, refresh_token, external_user_id, scope, expires_at, garmin_email, garmin_password, user_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := r.pool.Exec(ctx, query,
		integration.ID,
		string(integration.Vendor),
		nullIfEmpty(integration.AccessToken),
		nullIfEmpty(integration.RefreshToken),
		nullIfEmpty(integration.ExternalUserID),
		nullIfEmpty(integration.Scope),
		integration.ExpiresAt,
		nullIfEmpty(integration.GarminEmail),
		nullIfEmpty(integration.GarminPassword),
		integration.UserID,
		integration.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// UpdateTokens mutates the OAuth token pair and expiry in place after a
// successful refresh.
func (r *IntegrationRepository) UpdateTokens(ctx context.Context, integrationID string, update domain.TokenUpdate) error {
	const query = `UPDATE integrations
        SET access_token=$2, refresh_token=$3, scope=$4, expires_at=$5
        WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		integrationID,
		update.AccessToken,
		update.RefreshToken,
		nullIfEmpty(update.Scope),
		update.ExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIntegrationNotFound
	}
	return nil
}

// Delete removes a connection addressed by row ID or by vendor name and
// returns the deleted row so the caller can cascade observation deletion.
func (r *IntegrationRepository) Delete(ctx context.Context, userID, idOrVendor string) (*domain.Integration, error) {
	query := `DELETE FROM integrations WHERE user_id=$1 AND (id=$2 OR vendor=$2) RETURNING ` + integrationColumns

	integration, err := scanIntegration(r.pool.QueryRow(ctx, query, userID, idOrVendor))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIntegrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return integration, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
