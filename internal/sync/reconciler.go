// Package sync walks upcoming reservations and replays each one through the
// reconciliation engine, catching up after webhook outages or config changes.
package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/config"
	"github.com/kolna/keysync/internal/lockapi"
	"github.com/kolna/keysync/internal/model"
	"github.com/kolna/keysync/internal/notify"
	"github.com/kolna/keysync/internal/service"
)

// DefaultHorizonDays bounds a run with no explicit range: everything arriving
// between today and today+horizon.
const DefaultHorizonDays = 90

// ReservationSource is the slice of the booking platform the reconciler
// needs.
type ReservationSource interface {
	ListReservations(ctx context.Context, from, to string) ([]model.Booking, error)
}

type Entry struct {
	BookingID string           `json:"booking_id"`
	Status    model.SyncStatus `json:"status"`
	Message   string           `json:"message,omitempty"`
}

type Report struct {
	From    string                   `json:"from"`
	To      string                   `json:"to"`
	DryRun  bool                     `json:"dry_run"`
	Total   int                      `json:"total"`
	Counts  map[model.SyncStatus]int `json:"counts"`
	Entries []Entry                  `json:"entries"`
}

type Reconciler struct {
	cfg          *config.Config
	reservations ReservationSource
	locks        lockapi.Client
	notifier     notify.Dispatcher
	audit        *service.AuditService
}

func NewReconciler(
	cfg *config.Config,
	reservations ReservationSource,
	locks lockapi.Client,
	notifier notify.Dispatcher,
	audit *service.AuditService,
) *Reconciler {
	return &Reconciler{
		cfg:          cfg,
		reservations: reservations,
		locks:        locks,
		notifier:     notifier,
		audit:        audit,
	}
}

// Run reconciles every reservation arriving within [from, to]. With apply
// false nothing is written anywhere: lock mutations are simulated,
// notifications suppressed and audit rows discarded, so the report shows what
// an apply run would do.
func (r *Reconciler) Run(ctx context.Context, from, to string, apply bool) (*Report, error) {
	if from == "" {
		from = time.Now().Format("2006-01-02")
	}
	if to == "" {
		to = time.Now().AddDate(0, 0, DefaultHorizonDays).Format("2006-01-02")
	}

	bookings, err := r.reservations.ListReservations(ctx, from, to)
	if err != nil {
		return nil, err
	}

	locks := r.locks
	notifier := r.notifier
	audit := r.audit
	if !apply {
		locks = &readOnlyClient{inner: r.locks}
		notifier = notify.NoopDispatcher{}
		audit = service.NewAuditService(discardWebhookLogs{}, discardSyncHistory{})
	}
	engine := service.NewReconcileService(r.cfg, locks, notifier, audit)

	report := &Report{
		From:   from,
		To:     to,
		DryRun: !apply,
		Total:  len(bookings),
		Counts: make(map[model.SyncStatus]int),
	}

	log.Info().
		Str("from", from).
		Str("to", to).
		Bool("apply", apply).
		Int("bookings", len(bookings)).
		Msg("starting bulk reconciliation")

	for i := range bookings {
		b := &bookings[i]

		event := model.EventReservationUpdated
		if b.Type == "cancellation" {
			event = model.EventReservationCancelled
		}

		result, err := engine.HandleEvent(ctx, event, b)
		if err != nil {
			log.Error().Err(err).Str("bookingId", b.ID.String()).Msg("reconciliation failed for booking")
			result = model.SyncResult{Status: model.StatusError, Message: err.Error()}
		}

		report.Counts[result.Status]++
		report.Entries = append(report.Entries, Entry{
			BookingID: b.ID.String(),
			Status:    result.Status,
			Message:   result.Message,
		})
	}

	log.Info().
		Interface("counts", report.Counts).
		Bool("apply", apply).
		Msg("bulk reconciliation finished")

	return report, nil
}

// readOnlyClient passes reads through and pretends writes succeeded.
type readOnlyClient struct {
	inner lockapi.Client
}

func (c *readOnlyClient) Login(ctx context.Context) error {
	return c.inner.Login(ctx)
}

func (c *readOnlyClient) ListCodes(ctx context.Context, lockID int64) ([]model.AccessCode, error) {
	return c.inner.ListCodes(ctx, lockID)
}

func (c *readOnlyClient) CreateCode(ctx context.Context, lockID int64, accessoireID string, params lockapi.CodeParams) (*model.AccessCode, error) {
	log.Info().Int64("lockId", lockID).Str("guest", params.GuestName).Msg("dry run: would create code")
	return &model.AccessCode{
		LockID:      lockID,
		Name:        params.GuestName,
		PIN:         params.PIN,
		Description: params.Description,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
	}, nil
}

func (c *readOnlyClient) UpdateCode(ctx context.Context, codeID int64, params lockapi.CodeParams) error {
	log.Info().Int64("codeId", codeID).Msg("dry run: would update code")
	return nil
}

func (c *readOnlyClient) DeleteCode(ctx context.Context, codeID int64) error {
	log.Info().Int64("codeId", codeID).Msg("dry run: would delete code")
	return nil
}
