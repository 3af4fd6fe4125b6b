package repository

import (
	"context"
	"time"

	"github.com/kolna/keysync/internal/database"
	"github.com/kolna/keysync/internal/model"
)

type WebhookLogRepository interface {
	Create(ctx context.Context, params model.CreateWebhookLogParams) (int64, error)
	FindByID(ctx context.Context, id int64) (*model.WebhookLog, error)
	MarkProcessed(ctx context.Context, id int64) error
	WasRecentlyProcessed(ctx context.Context, bookingID, eventType string, window time.Duration) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type webhookLogRepo struct {
	db database.DBTX
}

func NewWebhookLogRepository(db database.DBTX) WebhookLogRepository {
	return &webhookLogRepo{db: db}
}

func (r *webhookLogRepo) Create(ctx context.Context, params model.CreateWebhookLogParams) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO webhook_logs (event_type, booking_id, payload, processed)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id
	`, params.EventType, params.BookingID, params.Payload)
	return id, err
}

func (r *webhookLogRepo) FindByID(ctx context.Context, id int64) (*model.WebhookLog, error) {
	var entry model.WebhookLog
	err := r.db.GetContext(ctx, &entry, `SELECT * FROM webhook_logs WHERE id = $1`, id)
	return HandleNotFound(&entry, err)
}

func (r *webhookLogRepo) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_logs SET processed = TRUE WHERE id = $1
	`, id)
	return err
}

func (r *webhookLogRepo) WasRecentlyProcessed(ctx context.Context, bookingID, eventType string, window time.Duration) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM webhook_logs
		WHERE booking_id = $1
		AND event_type = $2
		AND processed = TRUE
		AND created_at > $3
	`, bookingID, eventType, time.Now().Add(-window))
	return count > 0, err
}

func (r *webhookLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM webhook_logs WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
