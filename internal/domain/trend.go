package domain

import "time"

// TrendPoint is the uniform row shape served by the trend engine regardless
// of which table backed the query. Label carries the entity key as the
// caller requested it, not necessarily the stored label. Value is nil when
// the backing column held NULL or an aggregation bucket was empty.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Unit  string    `json:"unit,omitempty"`
	Value *float64  `json:"value"`
}

// DateBounds is an optional inclusive date filter. End is extended to the
// final millisecond of its calendar day before it reaches a query.
type DateBounds struct {
	Start *time.Time
	End   *time.Time
}
