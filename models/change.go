package models

import "time"

type EntityKind string

const (
	EntityBooking  EntityKind = "booking"
	EntityResource EntityKind = "resource"
	EntityPayment  EntityKind = "payment"
)

// Change kinds published after a committed mutation.
const (
	ChangeBookingCreated    = "booking.created"
	ChangeBookingAccepted   = "booking.accepted"
	ChangeBookingRejected   = "booking.rejected"
	ChangeBookingCompleted  = "booking.completed"
	ChangeBookingCancelled  = "booking.cancelled"
	ChangeBookingPaid       = "booking.paid"
	ChangeResourceAvailable = "resource.availability"
	ChangeResourceMoved     = "resource.location"
	ChangePaymentCreated    = "payment.created"
	ChangePaymentSettled    = "payment.settled"
)

// ChangeSignal says that an entity changed. Receivers re-fetch state
// instead of trusting ordering or payload.
type ChangeSignal struct {
	Key      string     `json:"key"`
	Entity   EntityKind `json:"entity"`
	EntityID string     `json:"entityId"`
	Change   string     `json:"change"`
	At       time.Time  `json:"at"`
}

// RequesterKey is the subscription key for bookings a requester owns.
func RequesterKey(requesterID string) string {
	return "requester:" + requesterID
}

// ResourceKey is the subscription key for a transport unit's own queue.
func ResourceKey(resourceID string) string {
	return "resource:" + resourceID
}

// PushPayload is the task body for push notifications fanned out from a signal.
type PushPayload struct {
	Target   string `json:"target"` // "requester" or "resource"
	TargetID string `json:"targetId"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Change   string `json:"change"`
	EntityID string `json:"entityId"`
}

// DashboardStats mirrors the counters shown on the requester dashboard.
type DashboardStats struct {
	AvailableResources    int64   `json:"availableResources"`
	ActiveBookings        int64   `json:"activeBookings"`
	SystemActiveBookings  int64   `json:"systemActiveBookings"`
	AverageResponseMinute float64 `json:"averageResponseMinutes"`
}
