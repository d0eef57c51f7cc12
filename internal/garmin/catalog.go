// Package garmin implements the Garmin vendor adapter. Fetches go through a
// companion service holding the vendor session; this package owns the
// credential cipher, the per-day fetch loop and normalization.
package garmin

import "sort"

// Metric maps one canonical type key to its display label and unit.
type Metric struct {
	Key   string
	Label string
	Unit  string
}

var catalog = map[string]Metric{
	"sleep_score":        {Key: "sleep_score", Label: "Sleep Score", Unit: "score"},
	"sleep_quality":      {Key: "sleep_quality", Label: "Sleep Quality", Unit: "rating"},
	"sleep_total_hours":  {Key: "sleep_total_hours", Label: "Total Sleep Hours", Unit: "hours"},
	"sleep_deep_hours":   {Key: "sleep_deep_hours", Label: "Deep Sleep Hours", Unit: "hours"},
	"sleep_light_hours":  {Key: "sleep_light_hours", Label: "Light Sleep Hours", Unit: "hours"},
	"sleep_rem_hours":    {Key: "sleep_rem_hours", Label: "REM Sleep Hours", Unit: "hours"},
	"sleep_awake_hours":  {Key: "sleep_awake_hours", Label: "Awake Hours", Unit: "hours"},
	"resting_heart_rate": {Key: "resting_heart_rate", Label: "Resting Heart Rate", Unit: "bpm"},
	"heart_rate_max":     {Key: "heart_rate_max", Label: "Max Heart Rate", Unit: "bpm"},
	"heart_rate_min":     {Key: "heart_rate_min", Label: "Min Heart Rate", Unit: "bpm"},
	"heart_rate_avg":     {Key: "heart_rate_avg", Label: "Average Heart Rate", Unit: "bpm"},
	"heart_rate":         {Key: "heart_rate", Label: "Heart Rate", Unit: "bpm"},
	"hrv_weekly_avg":     {Key: "hrv_weekly_avg", Label: "HRV Weekly Average", Unit: "ms"},
	"hrv_last_night_avg": {Key: "hrv_last_night_avg", Label: "HRV Last Night Average", Unit: "ms"},
	"hrv_status":         {Key: "hrv_status", Label: "HRV Status", Unit: "status"},
}

// LookupMetric resolves a canonical type key.
func LookupMetric(key string) (Metric, bool) {
	m, ok := catalog[key]
	return m, ok
}

// Keys returns every canonical type key this adapter can produce, sorted.
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
