// Package domain defines the canonical types shared across the ingestion
// pipeline and the trend query engine.
package domain

import (
	"errors"
	"strings"
	"time"
)

// Source identifies the vendor a reading originated from.
type Source string

const (
	SourceWithings Source = "withings"
	SourceGarmin   Source = "garmin"
)

// ParseSource validates a raw vendor name.
func ParseSource(raw string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(raw))) {
	case SourceWithings:
		return SourceWithings, nil
	case SourceGarmin:
		return SourceGarmin, nil
	default:
		return "", errors.New("unknown vendor: " + raw)
	}
}

// Reading is a normalized, vendor-neutral measurement that has not yet been
// persisted. Adapters emit readings; the store assigns IDs on write.
type Reading struct {
	Source        Source
	Type          string
	Label         string
	Unit          string // empty means unitless, stored as NULL
	Value         float64
	ObservedAt    time.Time
	UserID        string
	IntegrationID string
}

// Validate checks the fields required by the observation store. A reading
// failing validation is skipped individually; it never discards the batch.
func (r Reading) Validate() error {
	if r.Source != SourceWithings && r.Source != SourceGarmin {
		return errors.New("reading: invalid source")
	}
	if strings.TrimSpace(r.Type) == "" {
		return errors.New("reading: type is required")
	}
	if strings.TrimSpace(r.Label) == "" {
		return errors.New("reading: label is required")
	}
	if r.ObservedAt.IsZero() {
		return errors.New("reading: observed_at is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("reading: user_id is required")
	}
	if strings.TrimSpace(r.IntegrationID) == "" {
		return errors.New("reading: integration_id is required")
	}
	return nil
}

// Observation is the stored form of a reading. The tuple
// (UserID, ObservedAt, Type, Source) is unique; re-ingesting an overlapping
// window updates Value in place and leaves every other column untouched.
type Observation struct {
	ID            string
	Source        Source
	Type          string
	Label         string
	Unit          string
	Value         float64
	ObservedAt    time.Time
	UserID        string
	IntegrationID string
	CreatedAt     time.Time
}
