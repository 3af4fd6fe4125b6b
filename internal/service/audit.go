package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/model"
	"github.com/kolna/keysync/internal/repository"
)

// AuditService owns the webhook log and the sync history. The webhook log
// doubles as the idempotency store; sync history is append-only audit.
type AuditService struct {
	webhookLogs repository.WebhookLogRepository
	syncHistory repository.SyncHistoryRepository
}

func NewAuditService(
	webhookLogs repository.WebhookLogRepository,
	syncHistory repository.SyncHistoryRepository,
) *AuditService {
	return &AuditService{
		webhookLogs: webhookLogs,
		syncHistory: syncHistory,
	}
}

// RecordReceived logs a delivery attempt before anything else happens, so
// even deliveries that are later skipped stay auditable.
func (s *AuditService) RecordReceived(ctx context.Context, event model.EventKind, bookingID model.FlexID, payload json.RawMessage) (int64, error) {
	var bookingPtr *string
	if !bookingID.IsZero() {
		id := bookingID.String()
		bookingPtr = &id
	}

	return s.webhookLogs.Create(ctx, model.CreateWebhookLogParams{
		EventType: string(event),
		BookingID: bookingPtr,
		Payload:   payload,
	})
}

// WasRecentlyProcessed reports whether the same (booking, event) pair was
// already fully processed within the window. An absent booking id never
// matches, so malformed payloads are attempted and fail loudly instead of
// being silently swallowed. Database errors degrade to "not processed".
func (s *AuditService) WasRecentlyProcessed(ctx context.Context, bookingID model.FlexID, event model.EventKind, window time.Duration) bool {
	if bookingID.IsZero() {
		return false
	}

	processed, err := s.webhookLogs.WasRecentlyProcessed(ctx, bookingID.String(), string(event), window)
	if err != nil {
		log.Error().Err(err).
			Str("bookingId", bookingID.String()).
			Str("event", string(event)).
			Msg("idempotency check failed, treating as not processed")
		return false
	}
	return processed
}

func (s *AuditService) MarkProcessed(ctx context.Context, logEntryID int64) {
	if err := s.webhookLogs.MarkProcessed(ctx, logEntryID); err != nil {
		log.Error().Err(err).Int64("logEntryId", logEntryID).Msg("failed to mark webhook processed")
	}
}

// RecordSyncOperation appends one row per attempted mutation, successful or
// not. A codeID of zero (vendor did not reveal an id) is stored as NULL.
func (s *AuditService) RecordSyncOperation(ctx context.Context, bookingID model.FlexID, codeID int64, op model.SyncOperation, success bool, errorMessage string) {
	var codePtr *int64
	if codeID != 0 {
		codePtr = &codeID
	}
	var msgPtr *string
	if errorMessage != "" {
		msgPtr = &errorMessage
	}

	if _, err := s.syncHistory.Create(ctx, model.CreateSyncHistoryParams{
		BookingID:    bookingID.String(),
		CodeID:       codePtr,
		Operation:    op,
		Success:      success,
		ErrorMessage: msgPtr,
	}); err != nil {
		log.Error().Err(err).
			Str("bookingId", bookingID.String()).
			Str("operation", string(op)).
			Msg("failed to record sync operation")
	}
}
