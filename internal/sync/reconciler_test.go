package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolna/keysync/internal/config"
	"github.com/kolna/keysync/internal/lockapi"
	"github.com/kolna/keysync/internal/model"
	"github.com/kolna/keysync/internal/notify"
	"github.com/kolna/keysync/internal/service"
)

type fakeReservations struct {
	bookings []model.Booking
	gotFrom  string
	gotTo    string
}

func (f *fakeReservations) ListReservations(ctx context.Context, from, to string) ([]model.Booking, error) {
	f.gotFrom = from
	f.gotTo = to
	return f.bookings, nil
}

type countingLockClient struct {
	codes       map[int64][]model.AccessCode
	nextID      int64
	createCalls int
	updateCalls int
	deleteCalls int
}

func (f *countingLockClient) Login(ctx context.Context) error { return nil }

func (f *countingLockClient) ListCodes(ctx context.Context, lockID int64) ([]model.AccessCode, error) {
	return f.codes[lockID], nil
}

func (f *countingLockClient) CreateCode(ctx context.Context, lockID int64, accessoireID string, params lockapi.CodeParams) (*model.AccessCode, error) {
	f.createCalls++
	f.nextID++
	code := model.AccessCode{ID: f.nextID, LockID: lockID, PIN: params.PIN, Description: params.Description}
	if f.codes == nil {
		f.codes = make(map[int64][]model.AccessCode)
	}
	f.codes[lockID] = append(f.codes[lockID], code)
	return &code, nil
}

func (f *countingLockClient) UpdateCode(ctx context.Context, codeID int64, params lockapi.CodeParams) error {
	f.updateCalls++
	return nil
}

func (f *countingLockClient) DeleteCode(ctx context.Context, codeID int64) error {
	f.deleteCalls++
	return nil
}

type countingDispatcher struct {
	smsCalls int
}

func (d *countingDispatcher) SendSMS(ctx context.Context, phone, text string) bool {
	d.smsCalls++
	return true
}

func (d *countingDispatcher) SendGuestMessage(ctx context.Context, bookingID model.FlexID, subject, body string) bool {
	return true
}

func fixtureConfig() *config.Config {
	return &config.Config{
		ApartmentLocks:  map[string]int64{"505200": 3718},
		LockAccessoires: map[string]string{"3718": "4413"},
		PINLength:       4,
		CheckInHour:     15,
		CheckOutHour:    12,
	}
}

func futureBooking(id, apartmentID string) model.Booking {
	return model.Booking{
		ID:        model.FlexID(id),
		Arrival:   "2999-06-01",
		Departure: "2999-06-05",
		Phone:     "+48600100200",
		Language:  "en",
		Apartment: model.Apartment{ID: model.FlexID(apartmentID), Name: "Apartment 12"},
	}
}

func TestReconcilerDryRun(t *testing.T) {
	reservations := &fakeReservations{bookings: []model.Booking{
		futureBooking("9001", "505200"),
		futureBooking("9002", "999999"),
	}}
	locks := &countingLockClient{}
	dispatcher := &countingDispatcher{}
	audit := service.NewAuditService(discardWebhookLogs{}, discardSyncHistory{})

	r := NewReconciler(fixtureConfig(), reservations, locks, dispatcher, audit)
	report, err := r.Run(context.Background(), "2999-05-01", "2999-07-01", false)

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, "2999-05-01", reservations.gotFrom)
	assert.Equal(t, "2999-07-01", reservations.gotTo)

	// The mapped booking would be created, the unmapped one skipped.
	assert.Equal(t, 1, report.Counts[model.StatusCreated])
	assert.Equal(t, 1, report.Counts[model.StatusSkipped])

	// Nothing actually mutated, nothing notified.
	assert.Zero(t, locks.createCalls)
	assert.Zero(t, locks.updateCalls)
	assert.Zero(t, locks.deleteCalls)
	assert.Zero(t, dispatcher.smsCalls)
}

func TestReconcilerApply(t *testing.T) {
	reservations := &fakeReservations{bookings: []model.Booking{
		futureBooking("9001", "505200"),
	}}
	locks := &countingLockClient{}
	dispatcher := &countingDispatcher{}
	audit := service.NewAuditService(discardWebhookLogs{}, discardSyncHistory{})

	r := NewReconciler(fixtureConfig(), reservations, locks, dispatcher, audit)
	report, err := r.Run(context.Background(), "2999-05-01", "2999-07-01", true)

	require.NoError(t, err)
	assert.False(t, report.DryRun)
	assert.Equal(t, 1, locks.createCalls)
	assert.Equal(t, 1, dispatcher.smsCalls)
	assert.Equal(t, 1, report.Counts[model.StatusCreated])
}

func TestReconcilerCancellationType(t *testing.T) {
	cancelled := futureBooking("9001", "505200")
	cancelled.Type = "cancellation"

	reservations := &fakeReservations{bookings: []model.Booking{cancelled}}
	locks := &countingLockClient{codes: map[int64][]model.AccessCode{
		3718: {{ID: 42, Description: "Smoobu#9001"}},
	}}
	audit := service.NewAuditService(discardWebhookLogs{}, discardSyncHistory{})

	r := NewReconciler(fixtureConfig(), reservations, locks, &countingDispatcher{}, audit)
	report, err := r.Run(context.Background(), "2999-05-01", "2999-07-01", true)

	require.NoError(t, err)
	assert.Equal(t, 1, locks.deleteCalls)
	assert.Equal(t, 1, report.Counts[model.StatusDeleted])
}

func TestReconcilerIdleUpdateConverges(t *testing.T) {
	// A booking whose code already exists with the right window lands on the
	// update path and converges without creating a duplicate.
	reservations := &fakeReservations{bookings: []model.Booking{
		futureBooking("9001", "505200"),
	}}
	locks := &countingLockClient{codes: map[int64][]model.AccessCode{
		3718: {{ID: 42, PIN: "1234", Description: "Smoobu#9001"}},
	}}
	audit := service.NewAuditService(discardWebhookLogs{}, discardSyncHistory{})

	r := NewReconciler(fixtureConfig(), reservations, locks, &countingDispatcher{}, audit)
	report, err := r.Run(context.Background(), "2999-05-01", "2999-07-01", true)

	require.NoError(t, err)
	assert.Zero(t, locks.createCalls)
	assert.Equal(t, 1, locks.updateCalls)
	assert.Equal(t, 1, report.Counts[model.StatusUpdated])
}

func TestReconcilerDefaultsRange(t *testing.T) {
	reservations := &fakeReservations{}
	audit := service.NewAuditService(discardWebhookLogs{}, discardSyncHistory{})
	r := NewReconciler(fixtureConfig(), reservations, &countingLockClient{}, notify.NoopDispatcher{}, audit)

	_, err := r.Run(context.Background(), "", "", false)

	require.NoError(t, err)
	assert.NotEmpty(t, reservations.gotFrom)
	assert.NotEmpty(t, reservations.gotTo)
	assert.Less(t, reservations.gotFrom, reservations.gotTo)
}
