// Package lockapi talks to The Keys platform. Two interchangeable backends
// exist: the token-based JSON API and an authenticated HTML-form fallback.
// Callers depend only on Client and never know which one is active.
package lockapi

import (
	"context"

	"github.com/kolna/keysync/internal/model"
)

// CodeParams carries everything needed to create or update a keypad code.
type CodeParams struct {
	GuestName string
	PIN       string
	// Validity window, YYYY-MM-DD.
	StartDate string
	EndDate   string
	// Clock times bounding the window on its first and last day.
	CheckInHour    int
	CheckInMinute  int
	CheckOutHour   int
	CheckOutMinute int
	// Free-text correlation tag, e.g. "Smoobu#9001".
	Description string
}

type Client interface {
	// Login establishes (or re-establishes) a session. Implementations are
	// idempotent: calling Login with a live session is a no-op.
	Login(ctx context.Context) error
	ListCodes(ctx context.Context, lockID int64) ([]model.AccessCode, error)
	CreateCode(ctx context.Context, lockID int64, accessoireID string, params CodeParams) (*model.AccessCode, error)
	UpdateCode(ctx context.Context, codeID int64, params CodeParams) error
	DeleteCode(ctx context.Context, codeID int64) error
}
