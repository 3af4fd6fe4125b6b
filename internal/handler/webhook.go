package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/model"
)

// WebhookProcessor is the engine surface the webhook handler depends on.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, event model.EventKind, booking *model.Booking, rawPayload json.RawMessage) model.SyncResult
}

type WebhookHandler struct {
	engine WebhookProcessor
}

func NewWebhookHandler(engine WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{engine: engine}
}

type webhookPayload struct {
	Action  string         `json:"action"`
	Data    *model.Booking `json:"data"`
	Booking *model.Booking `json:"booking"`
}

// bookingFrom picks the reservation out of a delivery. The platform has
// shipped three envelope shapes over time: `data`, `booking`, and the
// reservation fields at the top level.
func bookingFrom(payload webhookPayload, body []byte) *model.Booking {
	if payload.Data != nil {
		return payload.Data
	}
	if payload.Booking != nil {
		return payload.Booking
	}
	var root model.Booking
	if err := json.Unmarshal(body, &root); err == nil {
		return &root
	}
	return &model.Booking{}
}

type webhookResponse struct {
	Success   bool             `json:"success"`
	Result    model.SyncResult `json:"result"`
	Event     model.EventKind  `json:"event"`
	BookingID string           `json:"booking_id,omitempty"`
}

// Receive ingests one delivery. Anything past JSON validity answers HTTP 200:
// the platform retries non-2xx responses, and a replay of a payload we cannot
// act on will never start succeeding.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("failed to read webhook body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Msg("invalid webhook payload")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
		return
	}

	booking := bookingFrom(payload, body)

	event := model.NormalizeAction(payload.Action)

	// Some channels deliver cancellations as an update whose reservation type
	// flipped to "cancellation".
	if booking.Type == "cancellation" {
		event = model.EventReservationCancelled
	}

	log.Info().
		Str("action", payload.Action).
		Str("event", string(event)).
		Str("bookingId", booking.ID.String()).
		Msg("received webhook")

	result := h.engine.ProcessWebhook(r.Context(), event, booking, json.RawMessage(body))

	writeJSON(w, http.StatusOK, webhookResponse{
		Success:   result.Status != model.StatusError,
		Result:    result,
		Event:     event,
		BookingID: booking.ID.String(),
	})
}
