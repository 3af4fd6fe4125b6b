package notify

import (
	"context"

	"github.com/kolna/keysync/internal/model"
)

// NoopDispatcher swallows every notification. Used by dry runs.
type NoopDispatcher struct{}

func (NoopDispatcher) SendSMS(ctx context.Context, phone, text string) bool { return false }

func (NoopDispatcher) SendGuestMessage(ctx context.Context, bookingID model.FlexID, subject, body string) bool {
	return false
}
