package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"example.com/tessera/internal/domain"
)

// ClientConfig holds the companion-service endpoint and admin key.
type ClientConfig struct {
	BaseURL  string
	AdminKey string
	Timeout  time.Duration
}

// Client queries the companion service that holds the Garmin session. Each
// metric family is fetched once per calendar day; a timed-out or failed call
// is a fetch failure for that one unit, never for the whole run.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient constructs a Client with a bounded per-call timeout.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3011"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// SleepDay is one day of sleep metrics. Nil fields were absent from the
// vendor response and produce no reading.
type SleepDay struct {
	Date       string   `json:"date"`
	SleepScore *float64 `json:"sleep_score"`
	TotalHours *float64 `json:"total_hours"`
	DeepHours  *float64 `json:"deep_hours"`
	LightHours *float64 `json:"light_hours"`
	RemHours   *float64 `json:"rem_hours"`
	AwakeHours *float64 `json:"awake_hours"`
}

// HeartRateSample is one intraday heart-rate reading.
type HeartRateSample struct {
	Time string   `json:"time"`
	BPM  *float64 `json:"bpm"`
}

// HeartRateDay is one day of heart-rate metrics plus the intraday series.
type HeartRateDay struct {
	RestingHR  *float64          `json:"resting_hr"`
	MaxHR      *float64          `json:"max_hr"`
	MinHR      *float64          `json:"min_hr"`
	AvgHR      *float64          `json:"avg_hr"`
	Timeseries []HeartRateSample `json:"timeseries"`
}

// HRVStatus decodes a status that the vendor returns as either a number or
// a string; unparseable strings collapse to zero.
type HRVStatus float64

// UnmarshalJSON implements json.Unmarshaler.
func (s *HRVStatus) UnmarshalJSON(data []byte) error {
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*s = HRVStatus(number)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		parsed = 0
	}
	*s = HRVStatus(parsed)
	return nil
}

// HRVDay is one day of heart-rate-variability metrics.
type HRVDay struct {
	WeeklyAverage    *float64   `json:"weekly_average"`
	LastNightAverage *float64   `json:"last_night_average"`
	Status           *HRVStatus `json:"status"`
}

// UpdateCredentials pushes a decrypted credential pair to the companion
// service. Callers tolerate failure: previously established session tokens
// may still be valid.
func (c *Client) UpdateCredentials(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/update-credentials", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.AdminKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: update-credentials returned HTTP %d", domain.ErrAuth, resp.StatusCode)
	}
	return nil
}

// Sleep fetches one day of sleep metrics.
func (c *Client) Sleep(ctx context.Context, date string) (SleepDay, error) {
	var day SleepDay
	err := c.getJSON(ctx, "/sleep?date="+url.QueryEscape(date), &day)
	return day, err
}

// HeartRate fetches one day of heart-rate metrics.
func (c *Client) HeartRate(ctx context.Context, date string) (HeartRateDay, error) {
	var day HeartRateDay
	err := c.getJSON(ctx, "/hr?date="+url.QueryEscape(date), &day)
	return day, err
}

// HRV fetches one day of heart-rate-variability metrics.
func (c *Client) HRV(ctx context.Context, date string) (HRVDay, error) {
	var day HRVDay
	escaped := url.QueryEscape(date)
	err := c.getJSON(ctx, "/hrv?start="+escaped+"&end="+escaped, &day)
	return day, err
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned HTTP %d", domain.ErrFetch, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", domain.ErrValidation, path, err)
	}
	return nil
}
