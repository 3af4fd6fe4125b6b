package sync

import (
	"context"
	"time"

	"github.com/kolna/keysync/internal/model"
)

// Discard repositories back the audit service during dry runs so nothing
// touches the database.

type discardWebhookLogs struct{}

func (discardWebhookLogs) Create(ctx context.Context, params model.CreateWebhookLogParams) (int64, error) {
	return 0, nil
}

func (discardWebhookLogs) FindByID(ctx context.Context, id int64) (*model.WebhookLog, error) {
	return nil, nil
}

func (discardWebhookLogs) MarkProcessed(ctx context.Context, id int64) error { return nil }

func (discardWebhookLogs) WasRecentlyProcessed(ctx context.Context, bookingID, eventType string, window time.Duration) (bool, error) {
	return false, nil
}

func (discardWebhookLogs) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type discardSyncHistory struct{}

func (discardSyncHistory) Create(ctx context.Context, params model.CreateSyncHistoryParams) (*model.SyncHistoryEntry, error) {
	return &model.SyncHistoryEntry{}, nil
}

func (discardSyncHistory) FindByBookingID(ctx context.Context, bookingID string, limit int) ([]model.SyncHistoryEntry, error) {
	return nil, nil
}

func (discardSyncHistory) FindRecentFailures(ctx context.Context, limit int) ([]model.SyncHistoryEntry, error) {
	return nil, nil
}

func (discardSyncHistory) CountSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

func (discardSyncHistory) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
