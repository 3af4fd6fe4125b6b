package repository

import (
	"context"
	"time"

	"github.com/kolna/keysync/internal/database"
	"github.com/kolna/keysync/internal/model"
)

type SyncHistoryRepository interface {
	Create(ctx context.Context, params model.CreateSyncHistoryParams) (*model.SyncHistoryEntry, error)
	FindByBookingID(ctx context.Context, bookingID string, limit int) ([]model.SyncHistoryEntry, error)
	FindRecentFailures(ctx context.Context, limit int) ([]model.SyncHistoryEntry, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type syncHistoryRepo struct {
	db database.DBTX
}

func NewSyncHistoryRepository(db database.DBTX) SyncHistoryRepository {
	return &syncHistoryRepo{db: db}
}

func (r *syncHistoryRepo) Create(ctx context.Context, params model.CreateSyncHistoryParams) (*model.SyncHistoryEntry, error) {
	var entry model.SyncHistoryEntry
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO sync_history (booking_id, code_id, operation, success, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.BookingID, params.CodeID, params.Operation, params.Success, params.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *syncHistoryRepo) FindByBookingID(ctx context.Context, bookingID string, limit int) ([]model.SyncHistoryEntry, error) {
	var entries []model.SyncHistoryEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM sync_history
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, bookingID, limit)
	return entries, err
}

func (r *syncHistoryRepo) FindRecentFailures(ctx context.Context, limit int) ([]model.SyncHistoryEntry, error) {
	var entries []model.SyncHistoryEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM sync_history
		WHERE success = FALSE
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	return entries, err
}

func (r *syncHistoryRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sync_history WHERE created_at >= $1
	`, since)
	return count, err
}

func (r *syncHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_history WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
