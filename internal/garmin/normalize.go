package garmin

import (
	"time"

	"example.com/tessera/internal/domain"
)

// provenance carries the ownership fields stamped onto every reading.
type provenance struct {
	UserID        string
	IntegrationID string
}

func (p provenance) reading(key string, value float64, observedAt time.Time) domain.Reading {
	metric := catalog[key]
	return domain.Reading{
		Source:        domain.SourceGarmin,
		Type:          metric.Key,
		Label:         metric.Label,
		Unit:          metric.Unit,
		Value:         value,
		ObservedAt:    observedAt,
		UserID:        p.UserID,
		IntegrationID: p.IntegrationID,
	}
}

// NormalizeSleep converts one day of sleep metrics into readings. Fields
// absent from the vendor response are omitted, never zero-filled. The
// vendor-supplied sleep date wins over the requested day when present.
func NormalizeSleep(day SleepDay, requested time.Time, userID, integrationID string) []domain.Reading {
	p := provenance{UserID: userID, IntegrationID: integrationID}

	observedAt := requested
	if day.Date != "" {
		if parsed, err := parseVendorTime(day.Date); err == nil {
			observedAt = parsed
		}
	}

	var readings []domain.Reading
	appendIf := func(key string, value *float64) {
		if value != nil {
			readings = append(readings, p.reading(key, *value, observedAt))
		}
	}
	appendIf("sleep_score", day.SleepScore)
	appendIf("sleep_total_hours", day.TotalHours)
	appendIf("sleep_deep_hours", day.DeepHours)
	appendIf("sleep_light_hours", day.LightHours)
	appendIf("sleep_rem_hours", day.RemHours)
	appendIf("sleep_awake_hours", day.AwakeHours)
	return readings
}

// NormalizeHeartRate converts one day of heart-rate metrics. Intraday samples
// each become their own heart_rate reading with the sample's timestamp; this
// is the only metric with sub-daily granularity.
func NormalizeHeartRate(day HeartRateDay, requested time.Time, userID, integrationID string) []domain.Reading {
	p := provenance{UserID: userID, IntegrationID: integrationID}

	var readings []domain.Reading
	appendIf := func(key string, value *float64) {
		if value != nil {
			readings = append(readings, p.reading(key, *value, requested))
		}
	}
	appendIf("resting_heart_rate", day.RestingHR)
	appendIf("heart_rate_max", day.MaxHR)
	appendIf("heart_rate_min", day.MinHR)
	appendIf("heart_rate_avg", day.AvgHR)

	for _, sample := range day.Timeseries {
		if sample.BPM == nil {
			continue
		}
		sampledAt, err := parseVendorTime(sample.Time)
		if err != nil {
			continue
		}
		readings = append(readings, p.reading("heart_rate", *sample.BPM, sampledAt))
	}
	return readings
}

// NormalizeHRV converts one day of heart-rate-variability metrics.
func NormalizeHRV(day HRVDay, requested time.Time, userID, integrationID string) []domain.Reading {
	p := provenance{UserID: userID, IntegrationID: integrationID}

	var readings []domain.Reading
	if day.WeeklyAverage != nil {
		readings = append(readings, p.reading("hrv_weekly_avg", *day.WeeklyAverage, requested))
	}
	if day.LastNightAverage != nil {
		readings = append(readings, p.reading("hrv_last_night_avg", *day.LastNightAverage, requested))
	}
	if day.Status != nil {
		readings = append(readings, p.reading("hrv_status", float64(*day.Status), requested))
	}
	return readings
}

// parseVendorTime accepts the timestamp shapes the companion service emits.
func parseVendorTime(raw string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return parsed.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
