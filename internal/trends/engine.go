package trends

import (
	"context"
	"fmt"
	"sort"
	"time"

	"example.com/tessera/internal/domain"
)

// ObservationReader reads the sparse canonical store.
type ObservationReader interface {
	TrendByType(ctx context.Context, userID, metricType string, bounds domain.DateBounds, limit int) ([]domain.TrendPoint, error)
}

// SnapshotReader reads the wide daily nutrition table.
type SnapshotReader interface {
	TrendByColumn(ctx context.Context, column string, bounds domain.DateBounds, limit int) ([]domain.TrendPoint, error)
}

// Engine answers metric-over-time queries with a uniform row shape no
// matter which table backs the entity.
type Engine struct {
	observations ObservationReader
	snapshots    SnapshotReader
}

// NewEngine constructs an Engine.
func NewEngine(observations ObservationReader, snapshots SnapshotReader) *Engine {
	return &Engine{observations: observations, snapshots: snapshots}
}

// Query resolves the entity and returns its raw time series. Resolution
// order: the wide-table name space, then the canonical-store type map, then
// a raw type passthrough with no date filtering for ad hoc queries.
func (e *Engine) Query(ctx context.Context, userID, entity string, start, end *time.Time) ([]domain.TrendPoint, error) {
	return e.query(ctx, userID, entity, makeBounds(start, end), 0)
}

func (e *Engine) query(ctx context.Context, userID, entity string, bounds domain.DateBounds, limit int) ([]domain.TrendPoint, error) {
	if binding, ok := nutritionEntities[entity]; ok {
		points, err := e.snapshots.TrendByColumn(ctx, binding.Column, bounds, limit)
		if err != nil {
			return nil, err
		}
		for i := range points {
			points[i].Label = entity
			points[i].Unit = binding.Unit
		}
		return points, nil
	}

	if unit, ok := vendorEntityUnit(entity); ok {
		points, err := e.observations.TrendByType(ctx, userID, entity, bounds, limit)
		if err != nil {
			return nil, err
		}
		for i := range points {
			points[i].Label = entity
			points[i].Unit = unit
		}
		return points, nil
	}

	// Ad hoc passthrough: the stored label and unit are kept, and no
	// date filtering applies.
	return e.observations.TrendByType(ctx, userID, entity, domain.DateBounds{}, limit)
}

// Bucket is the aggregation window size.
type Bucket string

const (
	BucketDaily   Bucket = "daily"
	BucketWeekly  Bucket = "weekly"
	BucketMonthly Bucket = "monthly"
)

// ParseBucket validates a raw bucket name; empty defaults to daily.
func ParseBucket(raw string) (Bucket, error) {
	switch Bucket(raw) {
	case "", BucketDaily:
		return BucketDaily, nil
	case BucketWeekly:
		return BucketWeekly, nil
	case BucketMonthly:
		return BucketMonthly, nil
	default:
		return "", fmt.Errorf("unknown aggregation %q", raw)
	}
}

// MaxEntities bounds how many entities one aggregated query may request.
const MaxEntities = 5

// MaxLimit bounds the raw rows fetched per entity before aggregation.
const MaxLimit = 1000

// DefaultLimit applies when the caller does not specify one.
const DefaultLimit = 100

// MetricValue is one entity's value inside an aggregated point. Value is
// nil when the bucket held no readings for the entity.
type MetricValue struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
	Unit  string   `json:"unit,omitempty"`
}

// AggregatedPoint is one bucket with every requested entity's reduction.
type AggregatedPoint struct {
	Date    time.Time     `json:"date"`
	Metrics []MetricValue `json:"metrics"`
}

// DateRange reports the raw extent of the data backing an aggregation.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Metadata describes how an aggregated result was produced.
type Metadata struct {
	Entities    []string   `json:"entities"`
	Aggregation Bucket     `json:"aggregation"`
	DateRange   *DateRange `json:"dateRange"`
	Count       int        `json:"count"`
	Limit       int        `json:"limit"`
}

// AggregatedResult is the metadata+data envelope for the tool-facing query.
type AggregatedResult struct {
	Metadata Metadata          `json:"metadata"`
	Data     []AggregatedPoint `json:"data"`
}

// QueryAggregated buckets each entity independently and reduces by
// arithmetic mean. The limit bounds raw rows fetched per entity before
// aggregation, not the number of buckets, so a truncated fetch truncates
// the tail of the series. Buckets are emitted in ascending key order; a
// bucket empty for one entity carries nil for it without affecting others.
func (e *Engine) QueryAggregated(ctx context.Context, userID string, entities []string, start, end *time.Time, bucket Bucket, limit int) (*AggregatedResult, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("at least one entity is required")
	}
	if len(entities) > MaxEntities {
		return nil, fmt.Errorf("at most %d entities may be requested", MaxEntities)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	bounds := makeBounds(start, end)

	type entitySeries struct {
		unit    string
		buckets map[time.Time][]float64
	}

	series := make(map[string]*entitySeries, len(entities))
	bucketKeys := make(map[time.Time]struct{})
	var dataRange *DateRange

	for _, entity := range entities {
		if _, ok := nutritionEntities[entity]; !ok {
			if _, ok := vendorEntityUnit(entity); !ok {
				return nil, fmt.Errorf("unknown entity %q", entity)
			}
		}

		points, err := e.query(ctx, userID, entity, bounds, limit)
		if err != nil {
			return nil, err
		}

		s := &entitySeries{buckets: make(map[time.Time][]float64)}
		if len(points) > 0 {
			s.unit = points[0].Unit
		}
		for _, point := range points {
			key := bucketKey(point.Date, bucket)
			bucketKeys[key] = struct{}{}
			if point.Value != nil {
				s.buckets[key] = append(s.buckets[key], *point.Value)
			}

			if dataRange == nil {
				dataRange = &DateRange{Start: point.Date, End: point.Date}
			} else {
				if point.Date.Before(dataRange.Start) {
					dataRange.Start = point.Date
				}
				if point.Date.After(dataRange.End) {
					dataRange.End = point.Date
				}
			}
		}
		series[entity] = s
	}

	keys := make([]time.Time, 0, len(bucketKeys))
	for key := range bucketKeys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	data := make([]AggregatedPoint, 0, len(keys))
	for _, key := range keys {
		point := AggregatedPoint{Date: key, Metrics: make([]MetricValue, 0, len(entities))}
		for _, entity := range entities {
			s := series[entity]
			metric := MetricValue{Label: entity, Unit: s.unit}
			if values := s.buckets[key]; len(values) > 0 {
				m := mean(values)
				metric.Value = &m
			}
			point.Metrics = append(point.Metrics, metric)
		}
		data = append(data, point)
	}

	return &AggregatedResult{
		Metadata: Metadata{
			Entities:    entities,
			Aggregation: bucket,
			DateRange:   dataRange,
			Count:       len(data),
			Limit:       limit,
		},
		Data: data,
	}, nil
}

// makeBounds extends the end bound through the last millisecond of its
// calendar day, making both bounds inclusive.
func makeBounds(start, end *time.Time) domain.DateBounds {
	bounds := domain.DateBounds{}
	if start != nil {
		s := start.UTC()
		bounds.Start = &s
	}
	if end != nil {
		e := endOfDay(end.UTC())
		bounds.End = &e
	}
	return bounds
}

func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// bucketKey truncates a timestamp to its bucket start: midnight for daily,
// the ISO week's Monday for weekly, the first of the month for monthly.
func bucketKey(t time.Time, bucket Bucket) time.Time {
	t = t.UTC()
	year, month, day := t.Date()
	switch bucket {
	case BucketWeekly:
		midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case BucketMonthly:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
