package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fastaid/apperrors"
	"fastaid/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

func sign(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload, Secret: secret, Timestamp: at,
	}).Header
}

const succeededEvent = `{
  "id": "evt_1",
  "object": "event",
  "api_version": "2023-10-16",
  "type": "payment_intent.succeeded",
  "data": {"object": {"id": "pi_123", "object": "payment_intent", "metadata": {"bookingId": "b1"}}}
}`

func TestParseStripeWebhook(t *testing.T) {
	payload := []byte(succeededEvent)
	got, err := ParseStripeWebhook(payload, sign(payload, "whsec_test", time.Now()), "whsec_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.BookingID != "b1" || got.OrderRef != "pi_123" || got.Outcome != models.PaymentSuccess {
		t.Fatalf("unexpected outcome: %+v", got)
	}
}

func TestParseStripeWebhookBadSignature(t *testing.T) {
	payload := []byte(succeededEvent)
	_, err := ParseStripeWebhook(payload, sign(payload, "whsec_other", time.Now()), "whsec_test")
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestParseStripeWebhookIgnoresOtherEvents(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{}}}`)
	got, err := ParseStripeWebhook(payload, sign(payload, "whsec_test", time.Now()), "whsec_test")
	if err != nil || got != nil {
		t.Fatalf("expected nil outcome, got %+v, %v", got, err)
	}
}

func intentEvent(id, eventType, status, orderRef, bookingID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": %q,
  "data": {"object": {"id": %q, "object": "payment_intent", "status": %q, "metadata": {"bookingId": %q}}}
}`, id, eventType, orderRef, status, bookingID))
}

func TestDeclinedAttemptDoesNotBlockLaterSuccess(t *testing.T) {
	f := newFixture(t)
	b := f.acceptedBooking(t)
	ctx := context.Background()
	order, _ := f.payments.CreateOrder(ctx, b.ID, 4500)
	ref := order.Transaction.OrderRef

	declined := intentEvent("evt_1", "payment_intent.payment_failed", "requires_payment_method", ref, b.ID)
	got, err := ParseStripeWebhook(declined, sign(declined, "whsec_test", time.Now()), "whsec_test")
	if err != nil || got != nil {
		t.Fatalf("a declined attempt carries no outcome, got %+v, %v", got, err)
	}

	paid := intentEvent("evt_2", "payment_intent.succeeded", "succeeded", ref, b.ID)
	got, err = ParseStripeWebhook(paid, sign(paid, "whsec_test", time.Now()), "whsec_test")
	if err != nil || got == nil || got.Outcome != models.PaymentSuccess {
		t.Fatalf("unexpected outcome: %+v, %v", got, err)
	}
	if _, err := f.payments.ReportOutcome(ctx, got.BookingID, got.OrderRef, got.Outcome); err != nil {
		t.Fatalf("report: %v", err)
	}
	booking, _ := f.bookings.Get(ctx, b.ID)
	if !booking.PaymentStatus {
		t.Fatalf("success after a declined attempt must mark the booking paid")
	}
}

func TestParseStripeWebhookCanceled(t *testing.T) {
	payload := intentEvent("evt_3", "payment_intent.canceled", "canceled", "pi_9", "b9")
	got, err := ParseStripeWebhook(payload, sign(payload, "whsec_test", time.Now()), "whsec_test")
	if err != nil || got == nil || got.Outcome != models.PaymentCancelled || got.OrderRef != "pi_9" {
		t.Fatalf("unexpected outcome: %+v, %v", got, err)
	}
}

// localStripe serves every Stripe API call with the given status and body.
func localStripe(t *testing.T, status int, body string) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return newStripeGateway("sk_test_local", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestStripeErrorClassification(t *testing.T) {
	req := models.OrderRequest{BookingID: "b1", Amount: 4500, Currency: "inr", Receipt: "r1"}

	tests := []struct {
		name     string
		status   int
		body     string
		declined bool
	}{
		{"card declined", http.StatusPaymentRequired, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`, true},
		{"bad api key", http.StatusUnauthorized, `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`, false},
		{"restricted key", http.StatusForbidden, `{"error":{"type":"invalid_request_error","message":"The provided key does not have access"}}`, false},
		{"provider down", http.StatusInternalServerError, `{"error":{"type":"api_error","message":"Something went wrong"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := localStripe(t, tt.status, tt.body).CreateOrder(context.Background(), req)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := errors.Is(err, apperrors.ErrPaymentFailed); got != tt.declined {
				t.Fatalf("declined = %v, want %v (%v)", got, tt.declined, err)
			}
		})
	}
}

func TestMisconfiguredKeyCancelsReservation(t *testing.T) {
	f := newFixture(t)
	b := f.acceptedBooking(t)
	ctx := context.Background()

	f.payments.Gateway = localStripe(t, http.StatusUnauthorized, `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`)
	if _, err := f.payments.CreateOrder(ctx, b.ID, 4500); !errors.Is(err, apperrors.ErrExternalServiceUnavailable) {
		t.Fatalf("expected external service unavailable, got %v", err)
	}
}

func TestStripeGetOrder(t *testing.T) {
	ctx := context.Background()

	st, err := localStripe(t, http.StatusOK,
		`{"id":"pi_9","object":"payment_intent","status":"succeeded","metadata":{"bookingId":"b9"}}`).GetOrder(ctx, "pi_9")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if st.Ref != "pi_9" || st.BookingID != "b9" || st.Outcome != models.PaymentSuccess {
		t.Fatalf("unexpected state: %+v", st)
	}

	st, err = localStripe(t, http.StatusOK,
		`{"id":"pi_9","object":"payment_intent","status":"requires_payment_method","metadata":{"bookingId":"b9"}}`).GetOrder(ctx, "pi_9")
	if err != nil || st.Outcome != models.PaymentPending {
		t.Fatalf("a retryable intent must stay pending: %+v, %v", st, err)
	}

	_, err = localStripe(t, http.StatusNotFound,
		`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`).GetOrder(ctx, "pi_x")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
