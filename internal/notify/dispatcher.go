// Package notify delivers access-code messages to guests over SMS and the
// booking platform's in-app channel. Both channels are best-effort: a failed
// send is logged and never fails the operation that triggered it.
package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/model"
	"github.com/kolna/keysync/internal/smoobu"
)

// Dispatcher is the contract the reconciliation engine depends on.
type Dispatcher interface {
	// SendSMS reports whether the message was accepted by the gateway.
	SendSMS(ctx context.Context, phone, text string) bool
	// SendGuestMessage posts into the booking's platform conversation.
	SendGuestMessage(ctx context.Context, bookingID model.FlexID, subject, body string) bool
}

type dispatcher struct {
	sms    *SMSFactorClient
	smoobu *smoobu.Client
}

func NewDispatcher(sms *SMSFactorClient, smoobuClient *smoobu.Client) Dispatcher {
	return &dispatcher{sms: sms, smoobu: smoobuClient}
}

// CleanPhone strips the formatting noise guests type into booking forms.
func CleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "(", "", ")", "", "-", "").Replace(phone)
}

func (d *dispatcher) SendSMS(ctx context.Context, phone, text string) bool {
	phone = CleanPhone(phone)
	if phone == "" {
		log.Debug().Msg("no guest phone number, skipping SMS")
		return false
	}
	if d.sms == nil || !d.sms.Enabled() {
		log.Debug().Msg("SMS notifications disabled (no token)")
		return false
	}

	if err := d.sms.Send(ctx, phone, text); err != nil {
		log.Warn().Err(err).Str("to", phone).Msg("failed to send SMS")
		return false
	}
	log.Info().Str("to", phone).Msg("sent SMS")
	return true
}

func (d *dispatcher) SendGuestMessage(ctx context.Context, bookingID model.FlexID, subject, body string) bool {
	if d.smoobu == nil {
		return false
	}
	if err := d.smoobu.SendGuestMessage(ctx, bookingID, subject, body); err != nil {
		log.Warn().Err(err).Str("bookingId", bookingID.String()).Msg("failed to send guest message")
		return false
	}
	log.Info().Str("bookingId", bookingID.String()).Msg("sent guest message")
	return true
}
