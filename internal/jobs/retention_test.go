package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kolna/keysync/internal/model"
)

type fakeWebhookLogRepo struct {
	deleteCalls atomic.Int32
	gotCutoff   time.Time
}

func (f *fakeWebhookLogRepo) Create(ctx context.Context, params model.CreateWebhookLogParams) (int64, error) {
	return 0, nil
}

func (f *fakeWebhookLogRepo) FindByID(ctx context.Context, id int64) (*model.WebhookLog, error) {
	return nil, nil
}

func (f *fakeWebhookLogRepo) MarkProcessed(ctx context.Context, id int64) error { return nil }

func (f *fakeWebhookLogRepo) WasRecentlyProcessed(ctx context.Context, bookingID, eventType string, window time.Duration) (bool, error) {
	return false, nil
}

func (f *fakeWebhookLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deleteCalls.Add(1)
	f.gotCutoff = cutoff
	return 3, nil
}

type fakeSyncHistoryRepo struct {
	deleteCalls int
}

func (f *fakeSyncHistoryRepo) Create(ctx context.Context, params model.CreateSyncHistoryParams) (*model.SyncHistoryEntry, error) {
	return nil, nil
}

func (f *fakeSyncHistoryRepo) FindByBookingID(ctx context.Context, bookingID string, limit int) ([]model.SyncHistoryEntry, error) {
	return nil, nil
}

func (f *fakeSyncHistoryRepo) FindRecentFailures(ctx context.Context, limit int) ([]model.SyncHistoryEntry, error) {
	return nil, nil
}

func (f *fakeSyncHistoryRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

func (f *fakeSyncHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deleteCalls++
	return 0, nil
}

func TestRetentionPurge(t *testing.T) {
	logs := &fakeWebhookLogRepo{}
	history := &fakeSyncHistoryRepo{}
	retention := 90 * 24 * time.Hour

	job := NewRetentionJob(logs, history, retention, time.Hour)
	job.purge()

	assert.Equal(t, int32(1), logs.deleteCalls.Load())
	assert.Equal(t, 1, history.deleteCalls)

	// Cutoff is retention back from now, give or take test runtime.
	wantCutoff := time.Now().Add(-retention)
	assert.WithinDuration(t, wantCutoff, logs.gotCutoff, time.Minute)
}

func TestRetentionStartStop(t *testing.T) {
	logs := &fakeWebhookLogRepo{}
	history := &fakeSyncHistoryRepo{}

	job := NewRetentionJob(logs, history, time.Hour, time.Hour)
	job.Start()
	defer job.Stop()

	// Start triggers an immediate purge before the first tick.
	assert.Eventually(t, func() bool {
		return logs.deleteCalls.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}
