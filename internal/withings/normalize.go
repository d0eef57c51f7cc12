package withings

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"example.com/tessera/internal/domain"
)

// Normalize maps raw vendor measurement groups into canonical readings. An
// unmapped or retired measure code fails the whole payload: the catalog is
// the allow-list of what the system understands, and a surprise code means
// the vendor contract changed.
func Normalize(payload MeasurePayload, userID, integrationID string) ([]domain.Reading, error) {
	var readings []domain.Reading

	for _, group := range payload.MeasureGrps {
		observedAt := time.Unix(group.Date, 0).UTC()

		for _, raw := range group.Measures {
			measure, ok := LookupMeasure(raw.Type)
			if !ok {
				return nil, fmt.Errorf("%w: unmapped withings measure code %d", domain.ErrValidation, raw.Type)
			}
			if measure.Status == MeasureRetired {
				return nil, fmt.Errorf("%w: retired withings measure code %d (%s)", domain.ErrValidation, raw.Type, measure.Key)
			}

			readings = append(readings, domain.Reading{
				Source:        domain.SourceWithings,
				Type:          measure.Key,
				Label:         measure.Label,
				Unit:          measure.Unit,
				Value:         scaleValue(raw.Value, raw.Unit),
				ObservedAt:    observedAt,
				UserID:        userID,
				IntegrationID: integrationID,
			})
		}
	}

	return readings, nil
}

// scaleValue computes value * 10^exponent rounded to two decimal places.
// Decimal arithmetic keeps 702 * 10^-2 at exactly 7.02.
func scaleValue(value int64, exponent int) float64 {
	return decimal.New(value, int32(exponent)).Round(2).InexactFloat64()
}
