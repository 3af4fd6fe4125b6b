package model

// EventKind is the internal booking-lifecycle event, normalized from the
// vendor-specific action names Smoobu puts on the wire.
type EventKind string

const (
	EventReservationNew       EventKind = "reservation.new"
	EventReservationUpdated   EventKind = "reservation.updated"
	EventReservationCancelled EventKind = "reservation.cancelled"
)

// NormalizeAction maps a Smoobu webhook action to an EventKind. Unknown
// actions fall back to updated: the update path is create-or-update, so a
// new action name the vendor ships later still converges.
func NormalizeAction(action string) EventKind {
	switch action {
	case "newReservation":
		return EventReservationNew
	case "cancelReservation":
		return EventReservationCancelled
	case "updateReservation":
		return EventReservationUpdated
	default:
		return EventReservationUpdated
	}
}
