package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/repository"
)

// RetentionJob periodically purges webhook logs and sync history older than
// the retention cutoff. Webhook payloads hold guest PII, so they must not
// accumulate forever.
type RetentionJob struct {
	webhookLogs repository.WebhookLogRepository
	syncHistory repository.SyncHistoryRepository
	retention   time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewRetentionJob(
	webhookLogs repository.WebhookLogRepository,
	syncHistory repository.SyncHistoryRepository,
	retention time.Duration,
	interval time.Duration,
) *RetentionJob {
	return &RetentionJob{
		webhookLogs: webhookLogs,
		syncHistory: syncHistory,
		retention:   retention,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *RetentionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("retention job started")
}

func (j *RetentionJob) Stop() {
	close(j.done)
	log.Info().Msg("retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.purge()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.purge()
		}
	}
}

func (j *RetentionJob) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)

	j.runPurge(ctx, "webhook logs", cutoff, j.webhookLogs.DeleteOlderThan)
	j.runPurge(ctx, "sync history", cutoff, j.syncHistory.DeleteOlderThan)
}

func (j *RetentionJob) runPurge(ctx context.Context, name string, cutoff time.Time, fn func(context.Context, time.Time) (int64, error)) {
	count, err := fn(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msgf("failed to purge %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("purged %s", name)
	}
}
