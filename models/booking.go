package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingRejected  BookingStatus = "rejected"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingRejected, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAccepted, BookingRejected, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// ActiveStatuses are the statuses that hold a resource.
var ActiveStatuses = []BookingStatus{BookingPending, BookingAccepted}

// Booking is one requester-to-resource engagement.
type Booking struct {
	ID                  string        `bson:"id" json:"id"`
	RequesterID         string        `bson:"requesterId" json:"requesterId"`
	ResourceID          string        `bson:"resourceId" json:"resourceId"`
	Pickup              GeoPoint      `bson:"pickup" json:"pickup"`
	Destination         GeoPoint      `bson:"destination" json:"destination"`
	Status              BookingStatus `bson:"status" json:"status"`
	EstimatedCost       int64         `bson:"estimatedCost" json:"estimatedCost"` // minor currency units
	Currency            string        `bson:"currency" json:"currency"`
	EstimatedTimeSec    int           `bson:"estimatedTimeSec" json:"estimatedTimeSec"`
	ETAKnown            bool          `bson:"etaKnown" json:"etaKnown"`
	RouteDistanceMeters float64       `bson:"routeDistanceMeters" json:"routeDistanceMeters"`
	PaymentStatus       bool          `bson:"paymentStatus" json:"paymentStatus"`
	CreatedAt           time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time     `bson:"updatedAt" json:"updatedAt"`
	AcceptedAt          *time.Time    `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	ClosedAt            *time.Time    `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
}
