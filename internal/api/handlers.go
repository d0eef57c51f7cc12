// Package api exposes HTTP handlers for the tessera service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"example.com/tessera/internal/auth"
	"example.com/tessera/internal/domain"
	"example.com/tessera/internal/garmin"
	"example.com/tessera/internal/trends"
)

// SyncRunner triggers one ingestion run.
type SyncRunner interface {
	RunSync(ctx context.Context, userID string, vendor domain.Source, start *time.Time) (int, error)
}

// TrendQuerier serves metric-over-time queries.
type TrendQuerier interface {
	Query(ctx context.Context, userID, entity string, start, end *time.Time) ([]domain.TrendPoint, error)
	QueryAggregated(ctx context.Context, userID string, entities []string, start, end *time.Time, bucket trends.Bucket, limit int) (*trends.AggregatedResult, error)
}

// IntegrationStore covers the connection lifecycle handlers.
type IntegrationStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Integration, error)
	FindByVendor(ctx context.Context, userID string, vendor domain.Source) (*domain.Integration, error)
	Create(ctx context.Context, integration domain.Integration) (*domain.Integration, error)
	Delete(ctx context.Context, userID, idOrVendor string) (*domain.Integration, error)
}

// ObservationDeleter cascades observation deletion on disconnect.
type ObservationDeleter interface {
	DeleteByIntegration(ctx context.Context, userID, integrationID string, vendor domain.Source) (int, error)
}

// SnapshotImporter writes pre-parsed nutrition day rows.
type SnapshotImporter interface {
	ImportRows(ctx context.Context, snapshots []domain.Snapshot) (int, error)
}

// Handler coordinates HTTP requests with the pipeline and query engine.
type Handler struct {
	sync         SyncRunner
	trends       TrendQuerier
	integrations IntegrationStore
	observations ObservationDeleter
	snapshots    SnapshotImporter
	cipher       garmin.Cipher
	logger       *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(sync SyncRunner, querier TrendQuerier, integrations IntegrationStore, observations ObservationDeleter, snapshots SnapshotImporter, cipher garmin.Cipher) *Handler {
	return &Handler{
		sync:         sync,
		trends:       querier,
		integrations: integrations,
		observations: observations,
		snapshots:    snapshots,
		cipher:       cipher,
		logger:       log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sync/", h.runSync)
	mux.HandleFunc("/v1/trends/aggregate", h.aggregateTrend)
	mux.HandleFunc("/v1/trends/", h.getTrend)
	mux.HandleFunc("/v1/integrations", h.listIntegrations)
	mux.HandleFunc("/v1/integrations/garmin", h.connectGarmin)
	mux.HandleFunc("/v1/integrations/", h.deleteIntegration)
	mux.HandleFunc("/v1/import", h.importSnapshots)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// SyncResponse reports the outcome of one sync run.
type SyncResponse struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSyncRun) {
		writeError(w, http.StatusForbidden, "scope sync:run required")
		return
	}

	vendor, err := domain.ParseSource(strings.TrimPrefix(r.URL.Path, "/v1/sync/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var start *time.Time
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		start = &parsed
	}

	imported, err := h.sync.RunSync(r.Context(), claims.Subject, vendor, start)
	if err != nil {
		h.logger.Printf("sync %s for user %s failed: %v", vendor, claims.Subject, err)
		writeError(w, syncStatus(err), syncReason(err))
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{Message: "Data fetched successfully", Imported: imported})
}

// syncStatus maps pipeline failures onto caller-visible status codes.
func syncStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrIntegrationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingCredentials):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// syncReason keeps raw vendor errors away from untrusted clients.
func syncReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrIntegrationNotFound):
		return "user not connected"
	case errors.Is(err, domain.ErrMissingCredentials):
		return "integration is missing required credentials"
	case errors.Is(err, domain.ErrAuth):
		return "failed to refresh access token"
	default:
		return "failed to fetch data"
	}
}

func (h *Handler) getTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeTrendsRead) {
		writeError(w, http.StatusForbidden, "scope trends:read required")
		return
	}

	entity := strings.TrimPrefix(r.URL.Path, "/v1/trends/")
	if entity == "" {
		writeError(w, http.StatusBadRequest, "missing entity")
		return
	}

	start, end, err := dateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.trends.Query(r.Context(), claims.Subject, entity, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "trend query failed")
		return
	}
	if points == nil {
		points = []domain.TrendPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

// AggregateTrendRequest is the payload for POST /v1/trends/aggregate.
type AggregateTrendRequest struct {
	Entities    []string `json:"entities"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Aggregation string   `json:"aggregation"`
	Limit       int      `json:"limit"`
}

func (h *Handler) aggregateTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeTrendsRead) {
		writeError(w, http.StatusForbidden, "scope trends:read required")
		return
	}

	var req AggregateTrendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	bucket, err := trends.ParseBucket(req.Aggregation)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var start, end *time.Time
	if req.StartDate != "" {
		parsed, err := parseDate(req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		start = &parsed
	}
	if req.EndDate != "" {
		parsed, err := parseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		end = &parsed
	}

	result, err := h.trends.QueryAggregated(r.Context(), claims.Subject, req.Entities, start, end, bucket, req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// IntegrationView hides credential fields from list responses.
type IntegrationView struct {
	ID        string     `json:"id"`
	Vendor    string     `json:"vendor"`
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (h *Handler) listIntegrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeIntegrationsManage) {
		writeError(w, http.StatusForbidden, "scope integrations:manage required")
		return
	}

	integrations, err := h.integrations.ListByUser(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing integrations failed")
		return
	}

	views := make([]IntegrationView, 0, len(integrations))
	for _, integration := range integrations {
		views = append(views, IntegrationView{
			ID:        integration.ID,
			Vendor:    string(integration.Vendor),
			Connected: true,
			ExpiresAt: integration.ExpiresAt,
			CreatedAt: integration.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// ConnectGarminRequest carries the credential pair for a new connection.
type ConnectGarminRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	StartDate string `json:"startDate"`
}

func (h *Handler) connectGarmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeIntegrationsManage) {
		writeError(w, http.StatusForbidden, "scope integrations:manage required")
		return
	}

	var req ConnectGarminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	existing, err := h.integrations.FindByVendor(r.Context(), claims.Subject, domain.SourceGarmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "looking up integration failed")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "user already connected")
		return
	}

	_, err = h.integrations.Create(r.Context(), domain.Integration{
		Vendor:         domain.SourceGarmin,
		GarminEmail:    h.cipher.Encrypt(req.Email),
		GarminPassword: h.cipher.Encrypt(req.Password),
		UserID:         claims.Subject,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storing integration failed")
		return
	}

	// Kick off the initial import without holding the request open.
	if req.StartDate != "" {
		if start, err := parseDate(req.StartDate); err == nil {
			userID := claims.Subject
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				defer cancel()
				if _, err := h.sync.RunSync(ctx, userID, domain.SourceGarmin, &start); err != nil {
					h.logger.Printf("initial garmin import for user %s failed: %v", userID, err)
				}
			}()
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Garmin connected"})
}

func (h *Handler) deleteIntegration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeIntegrationsManage) {
		writeError(w, http.StatusForbidden, "scope integrations:manage required")
		return
	}

	idOrVendor := strings.TrimPrefix(r.URL.Path, "/v1/integrations/")
	if idOrVendor == "" {
		writeError(w, http.StatusBadRequest, "missing integration id")
		return
	}

	deleted, err := h.integrations.Delete(r.Context(), claims.Subject, idOrVendor)
	if err != nil {
		if errors.Is(err, domain.ErrIntegrationNotFound) {
			writeError(w, http.StatusNotFound, "integration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "deleting integration failed")
		return
	}

	removed, err := h.observations.DeleteByIntegration(r.Context(), claims.Subject, deleted.ID, deleted.Vendor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "deleting observations failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"vendor":               string(deleted.Vendor),
		"observations_deleted": removed,
	})
}

// ImportRequest carries pre-parsed nutrition day rows. File parsing is the
// import adapter's job; this endpoint only persists.
type ImportRequest struct {
	Data []ImportRow `json:"data"`
}

// ImportRow is one day keyed by wide-table column names.
type ImportRow struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

func (h *Handler) importSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeImportWrite) {
		writeError(w, http.StatusForbidden, "scope import:write required")
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	snapshots := make([]domain.Snapshot, 0, len(req.Data))
	for _, row := range req.Data {
		date, err := parseDate(row.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date "+row.Date)
			return
		}
		snapshots = append(snapshots, domain.Snapshot{Date: date, Values: row.Values})
	}

	imported, err := h.snapshots.ImportRows(r.Context(), snapshots)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "imported": imported})
}

func dateParams(r *http.Request) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return nil, nil, errors.New("invalid startDate")
		}
		start = &parsed
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return nil, nil, errors.New("invalid endDate")
		}
		end = &parsed
	}
	return start, end, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"error": reason})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
