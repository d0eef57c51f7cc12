package consumer

import (
	"context"
	"log"
	"time"

	"example.com/tessera/internal/domain"
)

// SyncRunner triggers one ingestion run for a user and vendor.
type SyncRunner interface {
	RunSync(ctx context.Context, userID string, vendor domain.Source, start *time.Time) (int, error)
}

// SyncHandler runs the ingestion pipeline for each consumed request.
type SyncHandler struct {
	runner SyncRunner
	logger *log.Logger
}

// NewSyncHandler constructs a handler backed by the provided runner.
func NewSyncHandler(runner SyncRunner) *SyncHandler {
	return &SyncHandler{
		runner: runner,
		logger: log.New(log.Writer(), "[sync-handler] ", log.LstdFlags),
	}
}

// Handle executes the sync named by the request.
func (h *SyncHandler) Handle(ctx context.Context, request SyncRequest) error {
	imported, err := h.runner.RunSync(ctx, request.UserID, request.Vendor, request.StartDate)
	if err != nil {
		return err
	}
	h.logger.Printf("sync %s for user %s imported %d observations (request_id=%s)", request.Vendor, request.UserID, imported, request.RequestID)
	return nil
}
