package withings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"example.com/tessera/internal/domain"
)

// ClientConfig carries the OAuth application credentials and endpoint.
type ClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the Withings public API. The vendor signals failure with
// an application-level status field inside an HTTP 200 response, so every
// call decodes the envelope and checks Status explicitly.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	now  func() time.Time
}

// NewClient constructs a Client with a bounded per-call timeout.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://wbsapi.withings.net"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		now:  time.Now,
	}
}

// TokenData is the body of a successful token request.
type TokenData struct {
	UserID       int64  `json:"userid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

// MeasureValue is one raw vendor measurement: the true value is
// Value * 10^Unit.
type MeasureValue struct {
	Value int64 `json:"value"`
	Type  int   `json:"type"`
	Unit  int   `json:"unit"`
}

// MeasureGroup is one timestamped group of measurements.
type MeasureGroup struct {
	GrpID    int64          `json:"grpid"`
	Date     int64          `json:"date"`
	Category int            `json:"category"`
	Measures []MeasureValue `json:"measures"`
}

// MeasurePayload is the body of a successful measurement fetch.
type MeasurePayload struct {
	UpdateTime  int64          `json:"updatetime"`
	Timezone    string         `json:"timezone"`
	MeasureGrps []MeasureGroup `json:"measuregrps"`
}

type tokenEnvelope struct {
	Status int       `json:"status"`
	Error  string    `json:"error"`
	Body   TokenData `json:"body"`
}

type measureEnvelope struct {
	Status int            `json:"status"`
	Error  string         `json:"error"`
	Body   MeasurePayload `json:"body"`
}

// ExchangeCode trades an authorization code for a token pair. The redirect
// URI must match the one used during authorization.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (TokenData, error) {
	form := url.Values{}
	form.Set("action", "requesttoken")
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	return c.requestToken(ctx, form)
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenData, error) {
	form := url.Values{}
	form.Set("action", "requesttoken")
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)

	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (TokenData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/oauth2", strings.NewReader(form.Encode()))
	if err != nil {
		return TokenData{}, fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return TokenData{}, fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenData{}, fmt.Errorf("%w: token endpoint returned HTTP %d", domain.ErrAuth, resp.StatusCode)
	}

	var envelope tokenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return TokenData{}, fmt.Errorf("%w: decoding token response: %v", domain.ErrValidation, err)
	}

	// HTTP 200 alone does not mean success.
	if envelope.Status != 0 {
		return TokenData{}, fmt.Errorf("%w: vendor status %d: %s", domain.ErrAuth, envelope.Status, envelope.Error)
	}
	return envelope.Body, nil
}

// FetchWindow retrieves the trailing seven days of measurements. The window
// is fixed: every scheduled run re-fetches the same trailing week and relies
// on the upsert dedup key for idempotence. A sync outage longer than the
// window leaves a permanent gap; there is no backfill path.
func (c *Client) FetchWindow(ctx context.Context, accessToken string) (MeasurePayload, error) {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -7)

	codes := ActiveCodes()
	codeStrs := make([]string, len(codes))
	for i, code := range codes {
		codeStrs[i] = strconv.Itoa(code)
	}

	form := url.Values{}
	form.Set("action", "getmeas")
	form.Set("meastypes", strings.Join(codeStrs, ","))
	form.Set("category", "1")
	form.Set("startdate", strconv.FormatInt(start.Unix(), 10))
	form.Set("enddate", strconv.FormatInt(end.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/measure", strings.NewReader(form.Encode()))
	if err != nil {
		return MeasurePayload{}, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return MeasurePayload{}, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return MeasurePayload{}, fmt.Errorf("%w: measure endpoint returned HTTP %d", domain.ErrFetch, resp.StatusCode)
	}

	var envelope measureEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return MeasurePayload{}, fmt.Errorf("%w: decoding measure response: %v", domain.ErrValidation, err)
	}

	if envelope.Status != 0 {
		return MeasurePayload{}, fmt.Errorf("%w: vendor status %d: %s", domain.ErrFetch, envelope.Status, envelope.Error)
	}
	return envelope.Body, nil
}
