package models

import "time"

type PaymentOutcome string

const (
	PaymentPending   PaymentOutcome = "pending"
	PaymentSuccess   PaymentOutcome = "success"
	PaymentFailed    PaymentOutcome = "failed"
	PaymentCancelled PaymentOutcome = "cancelled"
)

func (o PaymentOutcome) Terminal() bool {
	return o == PaymentSuccess || o == PaymentFailed || o == PaymentCancelled
}

func (o PaymentOutcome) Valid() bool {
	return o == PaymentPending || o.Terminal()
}

// PaymentTransaction correlates a booking with an external payment order.
type PaymentTransaction struct {
	ID        string         `bson:"id" json:"id"`
	BookingID string         `bson:"bookingId" json:"bookingId"`
	OrderRef  string         `bson:"orderRef" json:"orderRef"`
	Amount    int64          `bson:"amount" json:"amount"` // minor currency units
	Currency  string         `bson:"currency" json:"currency"`
	Outcome   PaymentOutcome `bson:"outcome" json:"outcome"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	SettledAt *time.Time     `bson:"settledAt,omitempty" json:"settledAt,omitempty"`
}

// OrderRequest is what the payment gateway needs to open an order.
type OrderRequest struct {
	BookingID   string
	Amount      int64
	Currency    string
	Receipt     string
	Description string
	Metadata    map[string]string
}

// Order is the gateway's answer to an OrderRequest.
type Order struct {
	Ref          string
	Status       string
	ClientSecret string
}
