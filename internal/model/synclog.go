package model

import (
	"encoding/json"
	"time"
)

// WebhookLog records every delivery attempt, processed or not. It backs both
// the audit trail and the idempotency window.
type WebhookLog struct {
	ID        int64           `db:"id"`
	EventType string          `db:"event_type"`
	BookingID *string         `db:"booking_id"`
	Payload   json.RawMessage `db:"payload"`
	Processed bool            `db:"processed"`
	CreatedAt time.Time       `db:"created_at"`
}

type CreateWebhookLogParams struct {
	EventType string
	BookingID *string
	Payload   json.RawMessage
}

// SyncOperation is the kind of mutation attempted against the lock vendor.
type SyncOperation string

const (
	OpCreate SyncOperation = "create"
	OpUpdate SyncOperation = "update"
	OpDelete SyncOperation = "delete"
)

// SyncHistoryEntry is one row of the append-only mutation audit trail.
type SyncHistoryEntry struct {
	ID           int64         `db:"id"`
	BookingID    string        `db:"booking_id"`
	CodeID       *int64        `db:"code_id"`
	Operation    SyncOperation `db:"operation"`
	Success      bool          `db:"success"`
	ErrorMessage *string       `db:"error_message"`
	CreatedAt    time.Time     `db:"created_at"`
}

type CreateSyncHistoryParams struct {
	BookingID    string
	CodeID       *int64
	Operation    SyncOperation
	Success      bool
	ErrorMessage *string
}
