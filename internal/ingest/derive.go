package ingest

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/tessera/internal/domain"
)

// massBasisMetrics are the base metrics a percentage is derived from when
// weight is co-located in the batch.
var massBasisMetrics = map[string]struct {
	DerivedType  string
	DerivedLabel string
}{
	"muscle_mass": {DerivedType: "muscle_mass_pct", DerivedLabel: "Muscle Mass (%)"},
	"bone_mass":   {DerivedType: "bone_mass_pct", DerivedLabel: "Bone Mass (%)"},
}

// Derive appends percentage readings for mass-basis metrics that share an
// observation timestamp with a weight reading. It is purely a function of
// the batch: a timestamp without weight yields no percentage, and prior
// stored values are never consulted.
func Derive(readings []domain.Reading) []domain.Reading {
	weights := make(map[time.Time]float64)
	for _, r := range readings {
		if r.Type == "weight" && r.Value != 0 {
			weights[r.ObservedAt] = r.Value
		}
	}
	if len(weights) == 0 {
		return readings
	}

	out := readings
	for _, r := range readings {
		derived, ok := massBasisMetrics[r.Type]
		if !ok {
			continue
		}
		weight, ok := weights[r.ObservedAt]
		if !ok {
			continue
		}

		out = append(out, domain.Reading{
			Source:        r.Source,
			Type:          derived.DerivedType,
			Label:         derived.DerivedLabel,
			Unit:          "%",
			Value:         percentage(r.Value, weight),
			ObservedAt:    r.ObservedAt,
			UserID:        r.UserID,
			IntegrationID: r.IntegrationID,
		})
	}
	return out
}

// percentage computes (part / whole) * 100 rounded to one decimal place.
func percentage(part, whole float64) float64 {
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		InexactFloat64()
}
