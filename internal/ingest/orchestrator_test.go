package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"example.com/tessera/internal/domain"
	"example.com/tessera/internal/garmin"
	"example.com/tessera/internal/withings"
)

var testNow = time.Date(2024, time.April, 10, 12, 0, 0, 0, time.UTC)

func newTestOrchestrator(obs *stubObservations, ints *stubIntegrations, w *stubWithings, g *stubGarmin) *Orchestrator {
	return NewOrchestrator(obs, ints, w, g, garmin.NewCipher("test-secret"),
		WithClock(func() time.Time { return testNow }),
		WithLogger(log.New(discard{}, "", 0)),
	)
}

func TestRunSyncWithingsHappyPath(t *testing.T) {
	obs := &stubObservations{}
	ints := &stubIntegrations{
		integration: &domain.Integration{
			ID:           "int-1",
			Vendor:       domain.SourceWithings,
			RefreshToken: "refresh-old",
			UserID:       "user-1",
		},
	}
	w := &stubWithings{
		token: withings.TokenData{
			AccessToken:  "access-new",
			RefreshToken: "refresh-new",
			Scope:        "user.metrics",
			ExpiresIn:    10800,
		},
		payload: withings.MeasurePayload{
			MeasureGrps: []withings.MeasureGroup{
				{Date: 1712736000, Measures: []withings.MeasureValue{
					{Value: 8000, Type: 1, Unit: -2},
					{Value: 4800, Type: 76, Unit: -2},
				}},
			},
		},
	}

	o := newTestOrchestrator(obs, ints, w, &stubGarmin{})

	imported, err := o.RunSync(context.Background(), "user-1", domain.SourceWithings, nil)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if w.refreshedWith != "refresh-old" {
		t.Errorf("refreshed with %q", w.refreshedWith)
	}
	if ints.updatedID != "int-1" || ints.update.RefreshToken != "refresh-new" {
		t.Errorf("token update not persisted: %+v", ints.update)
	}
	wantExpiry := testNow.Add(10800 * time.Second)
	if !ints.update.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", ints.update.ExpiresAt, wantExpiry)
	}
	if w.fetchedWith != "access-new" {
		t.Errorf("fetched with stale token %q", w.fetchedWith)
	}

	// weight + muscle_mass + derived muscle_mass_pct
	if len(obs.upserted) != 3 {
		t.Fatalf("expected 3 upserted readings got %d", len(obs.upserted))
	}
	if imported != 3 {
		t.Errorf("imported = %d", imported)
	}
	if obs.upserted[2].Type != "muscle_mass_pct" || obs.upserted[2].Value != 60.0 {
		t.Errorf("unexpected derived reading %+v", obs.upserted[2])
	}
}

func TestRunSyncNoIntegration(t *testing.T) {
	o := newTestOrchestrator(&stubObservations{}, &stubIntegrations{}, &stubWithings{}, &stubGarmin{})

	_, err := o.RunSync(context.Background(), "user-1", domain.SourceWithings, nil)
	if !errors.Is(err, domain.ErrIntegrationNotFound) {
		t.Fatalf("expected ErrIntegrationNotFound got %v", err)
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Stage != StageAuthenticated {
		t.Fatalf("expected failure at authenticated stage, got %v", err)
	}
}

func TestRunSyncWithingsMissingRefreshToken(t *testing.T) {
	ints := &stubIntegrations{
		integration: &domain.Integration{ID: "int-1", Vendor: domain.SourceWithings, UserID: "user-1"},
	}
	o := newTestOrchestrator(&stubObservations{}, ints, &stubWithings{}, &stubGarmin{})

	_, err := o.RunSync(context.Background(), "user-1", domain.SourceWithings, nil)
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials got %v", err)
	}
}

func TestRunSyncWithingsRefreshFailureShortCircuits(t *testing.T) {
	ints := &stubIntegrations{
		integration: &domain.Integration{ID: "int-1", Vendor: domain.SourceWithings, RefreshToken: "stale", UserID: "user-1"},
	}
	w := &stubWithings{refreshErr: fmt.Errorf("%w: vendor status 401", domain.ErrAuth)}
	obs := &stubObservations{}
	o := newTestOrchestrator(obs, ints, w, &stubGarmin{})

	_, err := o.RunSync(context.Background(), "user-1", domain.SourceWithings, nil)
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth got %v", err)
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Stage != StageCredentialsRefreshed {
		t.Fatalf("expected failure at credentials_refreshed, got %v", err)
	}
	if w.fetchCalls != 0 {
		t.Error("fetch must not run after a refresh failure")
	}
	if len(obs.upserted) != 0 {
		t.Error("nothing should be upserted after a refresh failure")
	}
}

func TestRunSyncGarminDayLoop(t *testing.T) {
	cipher := garmin.NewCipher("test-secret")
	ints := &stubIntegrations{
		integration: &domain.Integration{
			ID:             "int-1",
			Vendor:         domain.SourceGarmin,
			GarminEmail:    cipher.Encrypt("user@example.com"),
			GarminPassword: cipher.Encrypt("hunter2"),
			UserID:         "user-1",
		},
	}
	g := &stubGarmin{
		sleep: map[string]garmin.SleepDay{
			"2024-04-08": {SleepScore: floatPtr(80)},
			"2024-04-09": {SleepScore: floatPtr(85)},
			"2024-04-10": {SleepScore: floatPtr(90)},
		},
		// The credential push fails but previously established session
		// tokens still work, so the run continues.
		credentialsErr: errors.New("companion service restarting"),
		// HRV is down for one day; that unit is skipped, the rest lands.
		hrvErr: map[string]error{
			"2024-04-09": fmt.Errorf("%w: HTTP 503", domain.ErrFetch),
		},
		hrv: map[string]garmin.HRVDay{
			"2024-04-08": {WeeklyAverage: floatPtr(44)},
			"2024-04-10": {WeeklyAverage: floatPtr(45)},
		},
	}
	obs := &stubObservations{}
	o := newTestOrchestrator(obs, ints, &stubWithings{}, g)

	start := time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC)
	imported, err := o.RunSync(context.Background(), "user-1", domain.SourceGarmin, &start)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if g.credentialEmail != "user@example.com" || g.credentialPassword != "hunter2" {
		t.Errorf("credentials not decrypted: %q / %q", g.credentialEmail, g.credentialPassword)
	}
	if len(g.sleepDates) != 3 {
		t.Fatalf("expected 3 days fetched got %v", g.sleepDates)
	}
	if g.sleepDates[0] != "2024-04-08" || g.sleepDates[2] != "2024-04-10" {
		t.Errorf("unexpected day range %v", g.sleepDates)
	}

	// 3 sleep scores + 2 HRV weekly averages
	if imported != 5 {
		t.Errorf("imported = %d, want 5", imported)
	}
}

func TestRunSyncGarminValidationAborts(t *testing.T) {
	cipher := garmin.NewCipher("test-secret")
	ints := &stubIntegrations{
		integration: &domain.Integration{
			ID:             "int-1",
			Vendor:         domain.SourceGarmin,
			GarminEmail:    cipher.Encrypt("user@example.com"),
			GarminPassword: cipher.Encrypt("hunter2"),
			UserID:         "user-1",
		},
	}
	g := &stubGarmin{
		hrErr: map[string]error{
			"2024-04-09": fmt.Errorf("%w: decoding /hr: unexpected shape", domain.ErrValidation),
		},
	}
	obs := &stubObservations{}
	o := newTestOrchestrator(obs, ints, &stubWithings{}, g)

	start := time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC)
	_, err := o.RunSync(context.Background(), "user-1", domain.SourceGarmin, &start)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Stage != StageFetched {
		t.Fatalf("expected failure at fetched stage, got %v", err)
	}
	if len(obs.upserted) != 0 {
		t.Error("a contract mismatch must abort before any upsert")
	}
}

func TestRunSyncGarminMissingCredentials(t *testing.T) {
	ints := &stubIntegrations{
		integration: &domain.Integration{ID: "int-1", Vendor: domain.SourceGarmin, UserID: "user-1"},
	}
	o := newTestOrchestrator(&stubObservations{}, ints, &stubWithings{}, &stubGarmin{})

	_, err := o.RunSync(context.Background(), "user-1", domain.SourceGarmin, nil)
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials got %v", err)
	}
}

func floatPtr(v float64) *float64 { return &v }

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type stubObservations struct {
	upserted []domain.Reading
	err      error
}

func (s *stubObservations) UpsertBatch(_ context.Context, readings []domain.Reading) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.upserted = append(s.upserted, readings...)
	return len(readings), nil
}

type stubIntegrations struct {
	integration *domain.Integration
	updatedID   string
	update      domain.TokenUpdate
}

func (s *stubIntegrations) FindByVendor(_ context.Context, _ string, _ domain.Source) (*domain.Integration, error) {
	return s.integration, nil
}

func (s *stubIntegrations) UpdateTokens(_ context.Context, integrationID string, update domain.TokenUpdate) error {
	s.updatedID = integrationID
	s.update = update
	return nil
}

type stubWithings struct {
	token      withings.TokenData
	payload    withings.MeasurePayload
	refreshErr error
	fetchErr   error

	refreshedWith string
	fetchedWith   string
	fetchCalls    int
}

func (s *stubWithings) RefreshToken(_ context.Context, refreshToken string) (withings.TokenData, error) {
	s.refreshedWith = refreshToken
	if s.refreshErr != nil {
		return withings.TokenData{}, s.refreshErr
	}
	return s.token, nil
}

func (s *stubWithings) FetchWindow(_ context.Context, accessToken string) (withings.MeasurePayload, error) {
	s.fetchCalls++
	s.fetchedWith = accessToken
	if s.fetchErr != nil {
		return withings.MeasurePayload{}, s.fetchErr
	}
	return s.payload, nil
}

type stubGarmin struct {
	credentialsErr     error
	credentialEmail    string
	credentialPassword string

	sleep      map[string]garmin.SleepDay
	sleepDates []string

	hr    map[string]garmin.HeartRateDay
	hrErr map[string]error

	hrv    map[string]garmin.HRVDay
	hrvErr map[string]error
}

func (s *stubGarmin) UpdateCredentials(_ context.Context, email, password string) error {
	s.credentialEmail = email
	s.credentialPassword = password
	return s.credentialsErr
}

func (s *stubGarmin) Sleep(_ context.Context, date string) (garmin.SleepDay, error) {
	s.sleepDates = append(s.sleepDates, date)
	return s.sleep[date], nil
}

func (s *stubGarmin) HeartRate(_ context.Context, date string) (garmin.HeartRateDay, error) {
	if err := s.hrErr[date]; err != nil {
		return garmin.HeartRateDay{}, err
	}
	return s.hr[date], nil
}

func (s *stubGarmin) HRV(_ context.Context, date string) (garmin.HRVDay, error) {
	if err := s.hrvErr[date]; err != nil {
		return garmin.HRVDay{}, err
	}
	return s.hrv[date], nil
}
