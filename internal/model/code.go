package model

// AccessCode is a keypad code record on The Keys platform. The vendor API
// speaks French field names; they are mapped here once and nowhere else.
type AccessCode struct {
	ID          int64  `json:"id"`
	LockID      int64  `json:"-"`
	Name        string `json:"nom"`
	PIN         string `json:"code"`
	Description string `json:"description"`
	StartDate   string `json:"date_debut"`
	EndDate     string `json:"date_fin"`
}

// SyncStatus is the terminal state of one reconciliation attempt.
type SyncStatus string

const (
	StatusCreated  SyncStatus = "created"
	StatusUpdated  SyncStatus = "updated"
	StatusDeleted  SyncStatus = "deleted"
	StatusExists   SyncStatus = "exists"
	StatusSkipped  SyncStatus = "skipped"
	StatusNotFound SyncStatus = "not_found"
	StatusIgnored  SyncStatus = "ignored"
	StatusError    SyncStatus = "error"
)

// SyncResult is what one webhook delivery reduces to. Benign terminal states
// (skipped, exists, not_found, ignored) are results, not errors; the fatal
// channel is a separate error value.
type SyncResult struct {
	Status  SyncStatus `json:"status"`
	Message string     `json:"message,omitempty"`
	CodeID  int64      `json:"code_id,omitempty"`
	PIN     string     `json:"pin,omitempty"`
}
