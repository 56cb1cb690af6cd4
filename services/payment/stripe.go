package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"fastaid/apperrors"
	"fastaid/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway opens Stripe PaymentIntents. The order reference is the
// PaymentIntent ID and the booking ID travels in metadata.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(key string) *StripeGateway {
	return newStripeGateway(key, nil)
}

// newStripeGateway lets tests point the client at a local backend.
func newStripeGateway(key string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(key, backends)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Receipt)
	params.AddMetadata("bookingId", req.BookingID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, stripeError("stripe.CreateOrder", err)
	}
	return &models.Order{Ref: pi.ID, Status: string(pi.Status), ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) GetOrder(ctx context.Context, orderRef string) (*OrderState, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(orderRef, params)
	if err != nil {
		return nil, stripeError("stripe.GetOrder", err)
	}
	return &OrderState{Ref: pi.ID, BookingID: pi.Metadata["bookingId"], Outcome: intentOutcome(pi.Status)}, nil
}

// intentOutcome maps a PaymentIntent status to an outcome. A failed attempt
// sends the intent back to requires_payment_method, so only succeeded and
// canceled are final.
func intentOutcome(status stripe.PaymentIntentStatus) models.PaymentOutcome {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentSuccess
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentCancelled
	}
	return models.PaymentPending
}

// stripeError classifies a Stripe API error. Only card errors are declines;
// auth and request errors mean the integration is broken, not the payer.
func stripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.Type == stripe.ErrorTypeCard:
			return apperrors.Wrap(apperrors.KindPaymentFailed, op, err)
		case stripeErr.HTTPStatusCode == http.StatusNotFound:
			return apperrors.Wrap(apperrors.KindNotFound, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WebhookOutcome is a payment outcome carried by a verified Stripe event.
type WebhookOutcome struct {
	BookingID string
	OrderRef  string
	Outcome   models.PaymentOutcome
}

// ParseStripeWebhook verifies the signature and maps PaymentIntent events to
// outcomes. Events that carry no final outcome return nil without error;
// payment_intent.payment_failed is one of them because the payer may retry.
func ParseStripeWebhook(payload []byte, signature, secret string) (*WebhookOutcome, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperrors.InvalidArgument("stripe.Webhook", "signature verification failed: %v", err)
	}

	var outcome models.PaymentOutcome
	switch event.Type {
	case "payment_intent.succeeded":
		outcome = models.PaymentSuccess
	case "payment_intent.canceled":
		outcome = models.PaymentCancelled
	default:
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, apperrors.InvalidArgument("stripe.Webhook", "malformed payment intent: %v", err)
	}
	return &WebhookOutcome{
		BookingID: pi.Metadata["bookingId"],
		OrderRef:  pi.ID,
		Outcome:   outcome,
	}, nil
}
