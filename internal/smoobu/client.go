// Package smoobu is the client for the reservation platform: listing
// reservations for the bulk reconciler and pushing in-platform messages to
// guests.
package smoobu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/config"
	apperrors "github.com/kolna/keysync/internal/errors"
	"github.com/kolna/keysync/internal/model"
)

const maxReservationPages = 100

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: config.ExternalRequestTimeout},
	}
}

// SendGuestMessage posts a message into the booking's conversation thread.
func (c *Client) SendGuestMessage(ctx context.Context, bookingID model.FlexID, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"subject":     subject,
		"messageBody": body,
	})
	if err != nil {
		return apperrors.External("smoobu", err)
	}

	url := fmt.Sprintf("%s/reservations/%s/messages/send-message-to-guest", c.baseURL, bookingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperrors.External("smoobu", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.External("smoobu", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apperrors.External("smoobu", fmt.Errorf("send message returned HTTP %d", resp.StatusCode))
	}
	return nil
}

type reservationsPage struct {
	Bookings   []model.Booking `json:"bookings"`
	TotalItems int             `json:"total_items"`
}

// ListReservations fetches every reservation arriving within [from, to],
// both YYYY-MM-DD. The platform has been observed repeating bookings across
// pages, so ids are de-duplicated and a hard page cap stops runaway loops.
func (c *Client) ListReservations(ctx context.Context, from, to string) ([]model.Booking, error) {
	var all []model.Booking
	seen := make(map[model.FlexID]bool)

	for page := 0; page <= maxReservationPages; page++ {
		url := fmt.Sprintf("%s/reservations?arrivalFrom=%s&arrivalTo=%s&page=%d&pageSize=100",
			c.baseURL, from, to, page)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, apperrors.External("smoobu", err)
		}
		req.Header.Set("Api-Key", c.apiKey)
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, apperrors.External("smoobu", err)
		}

		var body reservationsPage
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, apperrors.External("smoobu", fmt.Errorf("reservations returned HTTP %d", resp.StatusCode))
		}
		if decodeErr != nil {
			return nil, apperrors.External("smoobu", decodeErr)
		}

		if len(body.Bookings) == 0 {
			break
		}

		fresh := 0
		for _, booking := range body.Bookings {
			if booking.ID.IsZero() || seen[booking.ID] {
				continue
			}
			seen[booking.ID] = true
			all = append(all, booking)
			fresh++
		}

		log.Debug().
			Int("page", page).
			Int("received", len(body.Bookings)).
			Int("fresh", fresh).
			Int("totalItems", body.TotalItems).
			Msg("fetched reservations page")

		if body.TotalItems > 0 && len(all) >= body.TotalItems {
			break
		}
	}

	return all, nil
}
