// Package ingest runs the per-vendor sync pipeline: refresh credentials,
// fetch a window, normalize, derive and upsert.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"example.com/tessera/internal/domain"
	"example.com/tessera/internal/garmin"
	"example.com/tessera/internal/observability"
	"example.com/tessera/internal/withings"
)

// Stage identifies where in the pipeline a sync run failed.
type Stage string

const (
	StageAuthenticated        Stage = "authenticated"
	StageCredentialsRefreshed Stage = "credentials_refreshed"
	StageFetched              Stage = "fetched"
	StageNormalized           Stage = "normalized"
	StageDerived              Stage = "derived"
	StageUpserted             Stage = "upserted"
)

// SyncError records the failing stage alongside the classified cause. Any
// stage failure short-circuits the run; later stages are never attempted.
type SyncError struct {
	Stage Stage
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed at %s: %v", e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func failed(stage Stage, err error) error {
	return &SyncError{Stage: stage, Err: err}
}

// ObservationStore is the upsert contract of the canonical store.
type ObservationStore interface {
	UpsertBatch(ctx context.Context, readings []domain.Reading) (int, error)
}

// IntegrationStore resolves and mutates vendor connections.
type IntegrationStore interface {
	FindByVendor(ctx context.Context, userID string, vendor domain.Source) (*domain.Integration, error)
	UpdateTokens(ctx context.Context, integrationID string, update domain.TokenUpdate) error
}

// WithingsClient is the vendor surface the orchestrator needs.
type WithingsClient interface {
	RefreshToken(ctx context.Context, refreshToken string) (withings.TokenData, error)
	FetchWindow(ctx context.Context, accessToken string) (withings.MeasurePayload, error)
}

// GarminClient is the companion-service surface the orchestrator needs.
type GarminClient interface {
	UpdateCredentials(ctx context.Context, email, password string) error
	Sleep(ctx context.Context, date string) (garmin.SleepDay, error)
	HeartRate(ctx context.Context, date string) (garmin.HeartRateDay, error)
	HRV(ctx context.Context, date string) (garmin.HRVDay, error)
}

// Option configures optional orchestrator behaviour.
type Option func(*Orchestrator)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator drives one sync run per invocation. Runs for the same
// (user, vendor) pair should not overlap, but accidental overlap is safe:
// the store's upsert-by-key semantics make duplicate windows idempotent, so
// no lock is taken.
type Orchestrator struct {
	observations ObservationStore
	integrations IntegrationStore
	withings     WithingsClient
	garmin       GarminClient
	cipher       garmin.Cipher

	logger *log.Logger
	now    func() time.Time
}

// NewOrchestrator wires the pipeline's collaborators.
func NewOrchestrator(
	observations ObservationStore,
	integrations IntegrationStore,
	withingsClient WithingsClient,
	garminClient GarminClient,
	cipher garmin.Cipher,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		observations: observations,
		integrations: integrations,
		withings:     withingsClient,
		garmin:       garminClient,
		cipher:       cipher,
		logger:       log.New(log.Writer(), "[ingest] ", log.LstdFlags),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunSync executes one sync run and returns the number of rows upserted.
// start is only honoured by vendors that support historical ranges; the
// Withings window is always the trailing week.
func (o *Orchestrator) RunSync(ctx context.Context, userID string, vendor domain.Source, start *time.Time) (int, error) {
	integration, err := o.integrations.FindByVendor(ctx, userID, vendor)
	if err != nil {
		return 0, failed(StageAuthenticated, fmt.Errorf("%w: %v", domain.ErrStore, err))
	}
	if integration == nil {
		return 0, failed(StageAuthenticated, domain.ErrIntegrationNotFound)
	}

	var imported int
	switch vendor {
	case domain.SourceWithings:
		imported, err = o.syncWithings(ctx, integration)
	case domain.SourceGarmin:
		imported, err = o.syncGarmin(ctx, integration, start)
	default:
		return 0, failed(StageAuthenticated, fmt.Errorf("unsupported vendor %q", vendor))
	}
	if err != nil {
		observability.RecordSyncFailure(string(vendor))
		return imported, err
	}

	observability.RecordSyncSuccess(string(vendor), imported, o.now())
	return imported, nil
}

func (o *Orchestrator) syncWithings(ctx context.Context, integration *domain.Integration) (int, error) {
	if integration.RefreshToken == "" {
		return 0, failed(StageAuthenticated, domain.ErrMissingCredentials)
	}

	token, err := o.withings.RefreshToken(ctx, integration.RefreshToken)
	if err != nil {
		return 0, failed(StageCredentialsRefreshed, err)
	}

	update := domain.TokenUpdate{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scope:        token.Scope,
		ExpiresAt:    o.now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}
	if err := o.integrations.UpdateTokens(ctx, integration.ID, update); err != nil {
		return 0, failed(StageCredentialsRefreshed, fmt.Errorf("%w: %v", domain.ErrStore, err))
	}

	payload, err := o.withings.FetchWindow(ctx, token.AccessToken)
	if err != nil {
		return 0, failed(StageFetched, err)
	}

	readings, err := withings.Normalize(payload, integration.UserID, integration.ID)
	if err != nil {
		return 0, failed(StageNormalized, err)
	}

	readings = Derive(readings)

	count, err := o.observations.UpsertBatch(ctx, readings)
	if err != nil {
		return count, failed(StageUpserted, fmt.Errorf("%w: %v", domain.ErrStore, err))
	}
	return count, nil
}

func (o *Orchestrator) syncGarmin(ctx context.Context, integration *domain.Integration, start *time.Time) (int, error) {
	if integration.GarminEmail == "" || integration.GarminPassword == "" {
		return 0, failed(StageAuthenticated, domain.ErrMissingCredentials)
	}

	email, err := o.cipher.Decrypt(integration.GarminEmail)
	if err != nil {
		return 0, failed(StageAuthenticated, fmt.Errorf("%w: decrypting email: %v", domain.ErrAuth, err))
	}
	password, err := o.cipher.Decrypt(integration.GarminPassword)
	if err != nil {
		return 0, failed(StageAuthenticated, fmt.Errorf("%w: decrypting password: %v", domain.ErrAuth, err))
	}

	// Session tokens on the companion service may still be valid, so a
	// failed credential push is logged and the run continues.
	if err := o.garmin.UpdateCredentials(ctx, email, password); err != nil {
		o.logger.Printf("garmin credential update failed, continuing: %v", err)
	}

	today := o.now().UTC().Truncate(24 * time.Hour)
	first := today.AddDate(0, -1, 0)
	if start != nil {
		first = start.UTC().Truncate(24 * time.Hour)
	}

	var readings []domain.Reading
	for day := first; !day.After(today); day = day.AddDate(0, 0, 1) {
		batch, err := o.fetchGarminDay(ctx, day, integration)
		if err != nil {
			// Only a payload-shape mismatch aborts; it means the
			// vendor contract changed and continuing would silently
			// under-import.
			return 0, failed(StageFetched, err)
		}
		readings = append(readings, batch...)
	}

	readings = Derive(readings)

	count, err := o.observations.UpsertBatch(ctx, readings)
	if err != nil {
		return count, failed(StageUpserted, fmt.Errorf("%w: %v", domain.ErrStore, err))
	}
	return count, nil
}

// fetchGarminDay queries the three metric families for one calendar day.
// A family failing its fetch is logged and skipped; the other families and
// the remaining days still run. Validation failures propagate.
func (o *Orchestrator) fetchGarminDay(ctx context.Context, day time.Time, integration *domain.Integration) ([]domain.Reading, error) {
	date := day.Format("2006-01-02")
	var readings []domain.Reading

	sleep, err := o.garmin.Sleep(ctx, date)
	switch {
	case err == nil:
		readings = append(readings, garmin.NormalizeSleep(sleep, day, integration.UserID, integration.ID)...)
	case errors.Is(err, domain.ErrValidation):
		return nil, err
	default:
		o.logger.Printf("garmin sleep fetch failed for %s: %v", date, err)
	}

	hr, err := o.garmin.HeartRate(ctx, date)
	switch {
	case err == nil:
		readings = append(readings, garmin.NormalizeHeartRate(hr, day, integration.UserID, integration.ID)...)
	case errors.Is(err, domain.ErrValidation):
		return nil, err
	default:
		o.logger.Printf("garmin hr fetch failed for %s: %v", date, err)
	}

	hrv, err := o.garmin.HRV(ctx, date)
	switch {
	case err == nil:
		readings = append(readings, garmin.NormalizeHRV(hrv, day, integration.UserID, integration.ID)...)
	case errors.Is(err, domain.ErrValidation):
		return nil, err
	default:
		o.logger.Printf("garmin hrv fetch failed for %s: %v", date, err)
	}

	return readings, nil
}
