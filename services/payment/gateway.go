package payment

import (
	"context"

	"fastaid/models"
)

// Gateway opens orders with the external payment provider. A declined order
// must come back as an apperrors payment-failed error; anything else that
// fails is treated as the provider being unreachable.
type Gateway interface {
	CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
	// GetOrder reads an order back from the provider. Unknown references
	// return an apperrors not-found error.
	GetOrder(ctx context.Context, orderRef string) (*OrderState, error)
}

// OrderState is the provider's view of an order. Outcome stays pending until
// the provider considers the order final.
type OrderState struct {
	Ref       string
	BookingID string
	Outcome   models.PaymentOutcome
}
