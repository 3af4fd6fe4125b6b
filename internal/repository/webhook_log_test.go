package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolna/keysync/internal/database"
	"github.com/kolna/keysync/internal/model"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL and skips
// the test when it is not set. Schema comes from migrations/001_init.sql.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.ExecContext(context.Background(), "TRUNCATE webhook_logs, sync_history")
		db.Close()
	})
	return db
}

func TestWebhookLogRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookLogRepository(db.DB)
	ctx := context.Background()

	bookingID := "9001"
	id, err := repo.Create(ctx, model.CreateWebhookLogParams{
		EventType: "reservation.new",
		BookingID: &bookingID,
		Payload:   json.RawMessage(`{"action":"newReservation"}`),
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	t.Run("rows start unprocessed", func(t *testing.T) {
		entry, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.False(t, entry.Processed)
		assert.Equal(t, "reservation.new", entry.EventType)
	})

	t.Run("unprocessed rows never match the window", func(t *testing.T) {
		processed, err := repo.WasRecentlyProcessed(ctx, "9001", "reservation.new", 5*time.Minute)
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("processed rows match within the window", func(t *testing.T) {
		require.NoError(t, repo.MarkProcessed(ctx, id))

		processed, err := repo.WasRecentlyProcessed(ctx, "9001", "reservation.new", 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, processed)

		// Different event kind for the same booking does not match.
		processed, err = repo.WasRecentlyProcessed(ctx, "9001", "reservation.cancelled", 5*time.Minute)
		require.NoError(t, err)
		assert.False(t, processed)

		// A zero-length window matches nothing.
		processed, err = repo.WasRecentlyProcessed(ctx, "9001", "reservation.new", 0)
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("find missing id returns nil", func(t *testing.T) {
		entry, err := repo.FindByID(ctx, 999999999)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}

func TestWebhookLogRetention(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookLogRepository(db.DB)
	ctx := context.Background()

	bookingID := "9001"
	_, err := repo.Create(ctx, model.CreateWebhookLogParams{
		EventType: "reservation.new",
		BookingID: &bookingID,
		Payload:   json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	// Fresh rows survive a cutoff in the past.
	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// A future cutoff sweeps everything.
	deleted, err = repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))
}
