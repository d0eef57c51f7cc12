package trends

import (
	"context"
	"testing"
	"time"

	"example.com/tessera/internal/domain"
)

type fakeObservations struct {
	points map[string][]domain.TrendPoint

	lastType   string
	lastBounds domain.DateBounds
	lastLimit  int
}

func (f *fakeObservations) TrendByType(_ context.Context, _ string, metricType string, bounds domain.DateBounds, limit int) ([]domain.TrendPoint, error) {
	f.lastType = metricType
	f.lastBounds = bounds
	f.lastLimit = limit
	return f.points[metricType], nil
}

type fakeSnapshots struct {
	points map[string][]domain.TrendPoint

	lastColumn string
	lastBounds domain.DateBounds
}

func (f *fakeSnapshots) TrendByColumn(_ context.Context, column string, bounds domain.DateBounds, limit int) ([]domain.TrendPoint, error) {
	f.lastColumn = column
	f.lastBounds = bounds
	return f.points[column], nil
}

func point(date time.Time, value float64) domain.TrendPoint {
	return domain.TrendPoint{Date: date, Value: &value}
}

func TestQueryResolvesNutritionFirst(t *testing.T) {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	snapshots := &fakeSnapshots{
		points: map[string][]domain.TrendPoint{
			"weight_kg": {point(day, 81.2)},
		},
	}
	observations := &fakeObservations{
		points: map[string][]domain.TrendPoint{
			"weight": {point(day, 999)},
		},
	}
	engine := NewEngine(observations, snapshots)

	// "weight" exists in both name spaces; the wide table wins.
	points, err := engine.Query(context.Background(), "user-1", "weight", nil, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if snapshots.lastColumn != "weight_kg" {
		t.Errorf("resolved column %q", snapshots.lastColumn)
	}
	if observations.lastType != "" {
		t.Error("canonical store must not be consulted for a nutrition entity")
	}
	if len(points) != 1 || *points[0].Value != 81.2 {
		t.Fatalf("unexpected points %+v", points)
	}
	if points[0].Label != "weight" || points[0].Unit != "kg" {
		t.Errorf("label/unit not normalized: %+v", points[0])
	}
}

func TestQueryVendorEntityAppliesInclusiveEndDate(t *testing.T) {
	observations := &fakeObservations{points: map[string][]domain.TrendPoint{}}
	engine := NewEngine(observations, &fakeSnapshots{})

	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	_, err := engine.Query(context.Background(), "user-1", "sleep_score", &day, &day)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if observations.lastType != "sleep_score" {
		t.Errorf("resolved type %q", observations.lastType)
	}
	if observations.lastBounds.Start == nil || !observations.lastBounds.Start.Equal(day) {
		t.Errorf("start bound %v", observations.lastBounds.Start)
	}
	end := observations.lastBounds.End
	if end == nil {
		t.Fatal("missing end bound")
	}
	// A single-day range covers the whole calendar day.
	if end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 {
		t.Errorf("end bound not extended to end of day: %v", end)
	}
	if !end.After(day) {
		t.Errorf("end bound %v not after %v", end, day)
	}
}

func TestQueryUnknownEntityIsRawPassthrough(t *testing.T) {
	stored := domain.TrendPoint{
		Date:  time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC),
		Label: "Custom Lab Result",
		Unit:  "mmol/L",
		Value: floatp(4.9),
	}
	observations := &fakeObservations{
		points: map[string][]domain.TrendPoint{"custom_lab": {stored}},
	}
	engine := NewEngine(observations, &fakeSnapshots{})

	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	points, err := engine.Query(context.Background(), "user-1", "custom_lab", &day, &day)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	// Passthrough ignores the date filter and keeps the stored label.
	if observations.lastBounds.Start != nil || observations.lastBounds.End != nil {
		t.Errorf("passthrough must not filter by date: %+v", observations.lastBounds)
	}
	if len(points) != 1 || points[0].Label != "Custom Lab Result" || points[0].Unit != "mmol/L" {
		t.Errorf("stored presentation lost: %+v", points)
	}
}

func TestQueryAggregatedWeeklyMean(t *testing.T) {
	observations := &fakeObservations{
		points: map[string][]domain.TrendPoint{
			"sleep_score": {
				point(time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC), 10),
				point(time.Date(2024, time.March, 6, 8, 0, 0, 0, time.UTC), 20),
				point(time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC), 30),
				point(time.Date(2024, time.March, 11, 8, 0, 0, 0, time.UTC), 50),
			},
		},
	}
	engine := NewEngine(observations, &fakeSnapshots{})

	result, err := engine.QueryAggregated(context.Background(), "user-1", []string{"sleep_score"}, nil, nil, BucketWeekly, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if result.Metadata.Limit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", result.Metadata.Limit, DefaultLimit)
	}
	if result.Metadata.Count != 2 {
		t.Fatalf("expected 2 buckets got %d", result.Metadata.Count)
	}

	// Mar 4, 6 and 10 share the ISO week starting Monday Mar 4.
	first := result.Data[0]
	if !first.Date.Equal(time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first bucket = %v", first.Date)
	}
	if first.Metrics[0].Value == nil || *first.Metrics[0].Value != 20 {
		t.Errorf("first bucket mean = %v, want 20", first.Metrics[0].Value)
	}

	second := result.Data[1]
	if !second.Date.Equal(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second bucket = %v", second.Date)
	}
	if *second.Metrics[0].Value != 50 {
		t.Errorf("second bucket mean = %v, want 50", *second.Metrics[0].Value)
	}

	wantRange := DateRange{
		Start: time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 11, 8, 0, 0, 0, time.UTC),
	}
	if result.Metadata.DateRange == nil || *result.Metadata.DateRange != wantRange {
		t.Errorf("dateRange = %+v, want %+v", result.Metadata.DateRange, wantRange)
	}
}

func TestQueryAggregatedNullForEmptyBucket(t *testing.T) {
	day1 := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	observations := &fakeObservations{
		points: map[string][]domain.TrendPoint{
			"sleep_score":        {point(day1, 80), point(day2, 90)},
			"resting_heart_rate": {point(day2, 48)},
		},
	}
	engine := NewEngine(observations, &fakeSnapshots{})

	result, err := engine.QueryAggregated(context.Background(), "user-1", []string{"sleep_score", "resting_heart_rate"}, nil, nil, BucketDaily, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(result.Data) != 2 {
		t.Fatalf("expected 2 buckets got %d", len(result.Data))
	}

	first := result.Data[0]
	if first.Metrics[0].Label != "sleep_score" || first.Metrics[1].Label != "resting_heart_rate" {
		t.Fatalf("metric order must follow the request: %+v", first.Metrics)
	}
	if first.Metrics[0].Value == nil || *first.Metrics[0].Value != 80 {
		t.Errorf("sleep_score on day1 = %v", first.Metrics[0].Value)
	}
	if first.Metrics[1].Value != nil {
		t.Error("a bucket with no readings for an entity must carry null")
	}
	if *result.Data[1].Metrics[1].Value != 48 {
		t.Errorf("resting_heart_rate on day2 = %v", result.Data[1].Metrics[1].Value)
	}
}

func TestQueryAggregatedRejectsUnknownEntity(t *testing.T) {
	engine := NewEngine(&fakeObservations{}, &fakeSnapshots{})

	if _, err := engine.QueryAggregated(context.Background(), "user-1", []string{"custom_lab"}, nil, nil, BucketDaily, 0); err == nil {
		t.Fatal("ad hoc types must not be aggregatable")
	}
}

func TestQueryAggregatedBoundsEntityCount(t *testing.T) {
	engine := NewEngine(&fakeObservations{}, &fakeSnapshots{})

	entities := []string{"weight", "calories", "protein", "fat", "carbs", "sleep_score"}
	if _, err := engine.QueryAggregated(context.Background(), "user-1", entities, nil, nil, BucketDaily, 0); err == nil {
		t.Fatal("expected entity count error")
	}
	if _, err := engine.QueryAggregated(context.Background(), "user-1", nil, nil, nil, BucketDaily, 0); err == nil {
		t.Fatal("expected missing entity error")
	}
}

func TestQueryAggregatedCapsLimit(t *testing.T) {
	observations := &fakeObservations{points: map[string][]domain.TrendPoint{}}
	engine := NewEngine(observations, &fakeSnapshots{})

	result, err := engine.QueryAggregated(context.Background(), "user-1", []string{"sleep_score"}, nil, nil, BucketDaily, 5000)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.Metadata.Limit != MaxLimit {
		t.Errorf("limit = %d, want cap %d", result.Metadata.Limit, MaxLimit)
	}
	if observations.lastLimit != MaxLimit {
		t.Errorf("store queried with limit %d", observations.lastLimit)
	}
}

func TestParseBucket(t *testing.T) {
	if b, err := ParseBucket(""); err != nil || b != BucketDaily {
		t.Errorf("empty should default to daily, got %v %v", b, err)
	}
	if b, err := ParseBucket("monthly"); err != nil || b != BucketMonthly {
		t.Errorf("monthly parse got %v %v", b, err)
	}
	if _, err := ParseBucket("hourly"); err == nil {
		t.Error("expected error for unknown bucket")
	}
}

func TestBucketKeyMonday(t *testing.T) {
	// Wednesday Mar 6 belongs to the week starting Monday Mar 4.
	wednesday := time.Date(2024, time.March, 6, 15, 30, 0, 0, time.UTC)
	got := bucketKey(wednesday, BucketWeekly)
	want := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("bucketKey = %v, want %v", got, want)
	}

	// Sunday belongs to the same week, not the next.
	sunday := time.Date(2024, time.March, 10, 23, 0, 0, 0, time.UTC)
	if got := bucketKey(sunday, BucketWeekly); !got.Equal(want) {
		t.Errorf("sunday bucketKey = %v, want %v", got, want)
	}
}

func TestEntitiesIsSortedAndDeduped(t *testing.T) {
	entities := Entities()
	if len(entities) == 0 {
		t.Fatal("no entities")
	}
	seen := map[string]struct{}{}
	for i, entity := range entities {
		if _, dup := seen[entity]; dup {
			t.Errorf("duplicate entity %q", entity)
		}
		seen[entity] = struct{}{}
		if i > 0 && entities[i-1] >= entity {
			t.Errorf("entities not sorted at %d: %q >= %q", i, entities[i-1], entity)
		}
	}
	for _, want := range []string{"weight", "calories", "sleep_score", "muscle_mass_pct"} {
		if _, ok := seen[want]; !ok {
			t.Errorf("missing entity %q", want)
		}
	}
}

func floatp(v float64) *float64 { return &v }
