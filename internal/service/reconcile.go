package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/config"
	apperrors "github.com/kolna/keysync/internal/errors"
	"github.com/kolna/keysync/internal/lockapi"
	"github.com/kolna/keysync/internal/model"
	"github.com/kolna/keysync/internal/notify"
	"github.com/kolna/keysync/internal/util"
)

// CorrelationTag is the free-text marker linking a booking to its access
// code. It is the only durable relationship between the two systems and must
// stay bit-exact across versions: codes written years ago are found by this
// substring.
func CorrelationTag(bookingID model.FlexID) string {
	return "Smoobu#" + bookingID.String()
}

// ReconcileService maps booking-lifecycle events onto idempotent mutations
// of the keypad-code fleet. Remote state is re-read before every mutation;
// no local cache of codes is trusted.
//
// Overlapping deliveries for the same booking are not mutually excluded.
// The idempotency window absorbs exact redeliveries and the cross-lock
// re-read absorbs sequenced deliveries; two deliveries that both read before
// either writes can still duplicate a code.
type ReconcileService struct {
	cfg      *config.Config
	locks    lockapi.Client
	notifier notify.Dispatcher
	audit    *AuditService
}

func NewReconcileService(
	cfg *config.Config,
	locks lockapi.Client,
	notifier notify.Dispatcher,
	audit *AuditService,
) *ReconcileService {
	return &ReconcileService{
		cfg:      cfg,
		locks:    locks,
		notifier: notifier,
		audit:    audit,
	}
}

// ProcessWebhook is the top-level entry for one delivery: audit first,
// idempotency second, then the event handler. Fatal errors are converted to
// an error-status result here; nothing propagates past this boundary.
func (s *ReconcileService) ProcessWebhook(ctx context.Context, event model.EventKind, booking *model.Booking, rawPayload json.RawMessage) model.SyncResult {
	logEntryID, err := s.audit.RecordReceived(ctx, event, booking.ID, rawPayload)
	if err != nil {
		log.Error().Err(err).
			Str("event", string(event)).
			Str("bookingId", booking.ID.String()).
			Msg("failed to record webhook")
		return model.SyncResult{Status: model.StatusError, Message: "Failed to record webhook"}
	}

	if s.audit.WasRecentlyProcessed(ctx, booking.ID, event, s.cfg.IdempotencyWindow()) {
		log.Info().
			Str("bookingId", booking.ID.String()).
			Str("event", string(event)).
			Msg("webhook already processed recently, skipping")
		return model.SyncResult{Status: model.StatusSkipped, Message: "Already processed"}
	}

	result, err := s.HandleEvent(ctx, event, booking)
	if err != nil {
		log.Error().Err(err).
			Str("bookingId", booking.ID.String()).
			Str("event", string(event)).
			Msg("error processing webhook")
		return model.SyncResult{Status: model.StatusError, Message: errorMessage(err)}
	}

	s.audit.MarkProcessed(ctx, logEntryID)
	return result
}

// HandleEvent dispatches to the per-kind handler. Benign outcomes come back
// as results; only truly exceptional conditions (vendor auth, failed
// mutation, missing dates) come back as errors.
func (s *ReconcileService) HandleEvent(ctx context.Context, event model.EventKind, booking *model.Booking) (model.SyncResult, error) {
	switch event {
	case model.EventReservationNew:
		return s.handleCreated(ctx, booking)
	case model.EventReservationUpdated:
		return s.handleUpdated(ctx, booking)
	case model.EventReservationCancelled:
		return s.handleCancelled(ctx, booking)
	default:
		log.Warn().Str("event", string(event)).Msg("unknown event type")
		return model.SyncResult{Status: model.StatusIgnored, Message: "Unknown event type"}, nil
	}
}

func (s *ReconcileService) handleCreated(ctx context.Context, b *model.Booking) (model.SyncResult, error) {
	log.Info().Str("bookingId", b.ID.String()).Msg("processing new reservation")

	if err := s.locks.Login(ctx); err != nil {
		return model.SyncResult{}, err
	}

	lockID, accessoireID, result := s.resolveLock(b)
	if result != nil {
		return *result, nil
	}

	existing, _, err := s.findCorrelatedCode(ctx, b.ID)
	if err != nil {
		return model.SyncResult{}, err
	}
	if existing != nil {
		log.Info().
			Str("bookingId", b.ID.String()).
			Int64("codeId", existing.ID).
			Msg("code already exists, skipping creation")
		return model.SyncResult{Status: model.StatusExists, Message: "Code already exists", CodeID: existing.ID}, nil
	}

	if b.Arrival == "" || b.Departure == "" {
		return model.SyncResult{}, apperrors.MissingRequired("Missing arrival or departure dates")
	}

	pin := util.GeneratePIN(s.cfg.PINLength)
	fullPIN := s.cfg.PrefixForLock(lockID) + pin

	created, err := s.locks.CreateCode(ctx, lockID, accessoireID, s.codeParams(b, pin))
	if err != nil {
		s.audit.RecordSyncOperation(ctx, b.ID, 0, model.OpCreate, false, err.Error())
		return model.SyncResult{}, apperrors.LockOperation("Failed to create code", err)
	}

	log.Info().
		Str("bookingId", b.ID.String()).
		Int64("lockId", lockID).
		Int64("codeId", created.ID).
		Str("pin", util.MaskPIN(pin)).
		Msg("created access code")
	s.audit.RecordSyncOperation(ctx, b.ID, created.ID, model.OpCreate, true, "")

	subject, body := notify.Render(strings.ToLower(b.Language), notify.MessageData{
		GuestName:     b.GuestNameOrDefault(),
		ApartmentName: b.ApartmentName(),
		FullPIN:       fullPIN,
		Arrival:       b.Arrival,
		Departure:     b.Departure,
	})

	s.notifier.SendSMS(ctx, b.Phone, body)

	// Guests already past their arrival date should not get a "your code
	// becomes active on X" message; skip without retry.
	if time.Now().Format("2006-01-02") <= b.Arrival {
		s.notifier.SendGuestMessage(ctx, b.ID, subject, body)
	}

	return model.SyncResult{Status: model.StatusCreated, CodeID: created.ID, PIN: pin}, nil
}

func (s *ReconcileService) handleUpdated(ctx context.Context, b *model.Booking) (model.SyncResult, error) {
	log.Info().Str("bookingId", b.ID.String()).Msg("processing updated reservation")

	if err := s.locks.Login(ctx); err != nil {
		return model.SyncResult{}, err
	}

	lockID, _, result := s.resolveLock(b)
	if result != nil {
		return *result, nil
	}

	existing, existingLockID, err := s.findCorrelatedCode(ctx, b.ID)
	if err != nil {
		return model.SyncResult{}, err
	}

	// Apartment reassignment: the code lives on the wrong lock. This is a
	// move, not an update: the old code is revoked and a fresh PIN is issued
	// on the new lock.
	if existing != nil && existingLockID != lockID {
		log.Info().
			Str("bookingId", b.ID.String()).
			Int64("fromLock", existingLockID).
			Int64("toLock", lockID).
			Msg("booking moved locks, deleting old code")
		if err := s.locks.DeleteCode(ctx, existing.ID); err != nil {
			s.audit.RecordSyncOperation(ctx, b.ID, existing.ID, model.OpDelete, false, err.Error())
			return model.SyncResult{}, apperrors.LockOperation("Failed to delete code", err)
		}
		s.audit.RecordSyncOperation(ctx, b.ID, existing.ID, model.OpDelete, true, "")
		return s.handleCreated(ctx, b)
	}

	// No code anywhere: the create webhook was missed or failed.
	if existing == nil {
		log.Info().Str("bookingId", b.ID.String()).Msg("code not found, creating new one")
		return s.handleCreated(ctx, b)
	}

	if b.Arrival == "" || b.Departure == "" {
		return model.SyncResult{}, apperrors.MissingRequired("Missing arrival or departure dates")
	}

	// In-place update: the guest keeps the PIN they were already told.
	if err := s.locks.UpdateCode(ctx, existing.ID, s.codeParams(b, existing.PIN)); err != nil {
		s.audit.RecordSyncOperation(ctx, b.ID, existing.ID, model.OpUpdate, false, err.Error())
		return model.SyncResult{}, apperrors.LockOperation("Failed to update code", err)
	}

	log.Info().
		Str("bookingId", b.ID.String()).
		Int64("codeId", existing.ID).
		Msg("updated access code")
	s.audit.RecordSyncOperation(ctx, b.ID, existing.ID, model.OpUpdate, true, "")

	fullPIN := s.cfg.PrefixForLock(lockID) + existing.PIN
	subject, body := notify.Render(strings.ToLower(b.Language), notify.MessageData{
		GuestName:     b.GuestNameOrDefault(),
		ApartmentName: b.ApartmentName(),
		FullPIN:       fullPIN,
		Arrival:       b.Arrival,
		Departure:     b.Departure,
	})

	// No arrival-date gate here: the dates changed, so the guest needs the
	// refreshed message even mid-stay.
	s.notifier.SendSMS(ctx, b.Phone, body)
	s.notifier.SendGuestMessage(ctx, b.ID, subject, body)

	return model.SyncResult{Status: model.StatusUpdated, CodeID: existing.ID, PIN: existing.PIN}, nil
}

func (s *ReconcileService) handleCancelled(ctx context.Context, b *model.Booking) (model.SyncResult, error) {
	log.Info().Str("bookingId", b.ID.String()).Msg("processing cancelled reservation")

	if err := s.locks.Login(ctx); err != nil {
		return model.SyncResult{}, err
	}

	// No lock resolution: after a reassignment the code may be on any lock.
	existing, existingLockID, err := s.findCorrelatedCode(ctx, b.ID)
	if err != nil {
		return model.SyncResult{}, err
	}
	if existing == nil {
		log.Info().Str("bookingId", b.ID.String()).Msg("code not found, nothing to delete")
		return model.SyncResult{Status: model.StatusNotFound, Message: "Code not found"}, nil
	}

	// Delete immediately regardless of how far off the checkout date is: the
	// stay will never happen.
	if err := s.locks.DeleteCode(ctx, existing.ID); err != nil {
		s.audit.RecordSyncOperation(ctx, b.ID, existing.ID, model.OpDelete, false, err.Error())
		return model.SyncResult{}, apperrors.LockOperation("Failed to delete code", err)
	}

	log.Info().
		Str("bookingId", b.ID.String()).
		Int64("lockId", existingLockID).
		Int64("codeId", existing.ID).
		Msg("deleted code for cancelled booking")
	s.audit.RecordSyncOperation(ctx, b.ID, existing.ID, model.OpDelete, true, "")

	// Cancellations send no guest notification.

	return model.SyncResult{Status: model.StatusDeleted, CodeID: existing.ID}, nil
}

// resolveLock maps the booking's apartment to its lock and accessoire. A
// missing mapping is a configuration gap, not a failure: the caller gets a
// skipped result.
func (s *ReconcileService) resolveLock(b *model.Booking) (lockID int64, accessoireID string, skip *model.SyncResult) {
	apartmentID := b.Apartment.ID.String()
	lockID, ok := s.cfg.LockForApartment(apartmentID)
	if !ok {
		log.Warn().Str("apartmentId", apartmentID).Msg("no lock mapping for apartment")
		return 0, "", &model.SyncResult{Status: model.StatusSkipped, Message: "No lock mapping"}
	}

	accessoireID, ok = s.cfg.AccessoireForLock(lockID)
	if !ok {
		log.Warn().Int64("lockId", lockID).Msg("no accessoire mapping for lock")
		return 0, "", &model.SyncResult{Status: model.StatusSkipped, Message: "No accessoire mapping"}
	}

	return lockID, accessoireID, nil
}

// findCorrelatedCode scans the whole fleet for the booking's code, lock by
// lock in ascending id order, and returns the first match. The linear scan
// is the only index the vendor offers; if a tag were ever duplicated across
// locks the first lock wins.
func (s *ReconcileService) findCorrelatedCode(ctx context.Context, bookingID model.FlexID) (*model.AccessCode, int64, error) {
	tag := CorrelationTag(bookingID)

	for _, lockID := range s.cfg.OrderedLockIDs() {
		codes, err := s.locks.ListCodes(ctx, lockID)
		if err != nil {
			return nil, 0, err
		}
		for i := range codes {
			if strings.Contains(codes[i].Description, tag) {
				codes[i].LockID = lockID
				return &codes[i], lockID, nil
			}
		}
	}
	return nil, 0, nil
}

func (s *ReconcileService) codeParams(b *model.Booking, pin string) lockapi.CodeParams {
	return lockapi.CodeParams{
		GuestName:      b.GuestNameOrDefault(),
		PIN:            pin,
		StartDate:      b.Arrival,
		EndDate:        b.Departure,
		CheckInHour:    s.cfg.CheckInHour,
		CheckInMinute:  s.cfg.CheckInMinute,
		CheckOutHour:   s.cfg.CheckOutHour,
		CheckOutMinute: s.cfg.CheckOutMinute,
		Description:    CorrelationTag(b.ID),
	}
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
