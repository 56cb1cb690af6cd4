package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/handlers"
	"fastaid/models"
	"fastaid/services/booking"
	"fastaid/services/fleet"
	"fastaid/services/ledger"
	"fastaid/services/locator"
	"fastaid/services/payment"
	"fastaid/services/propagation"
	"fastaid/services/stats"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// stubGateway keeps orders in memory; finish plays the payer completing checkout.
type stubGateway struct {
	mu     sync.Mutex
	orders map[string]payment.OrderState
}

func (g *stubGateway) CreateOrder(_ context.Context, req models.OrderRequest) (*models.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := "pi_" + req.Receipt
	g.orders[ref] = payment.OrderState{Ref: ref, BookingID: req.BookingID, Outcome: models.PaymentPending}
	return &models.Order{Ref: ref, Status: "requires_payment_method", ClientSecret: "cs_test"}, nil
}

func (g *stubGateway) GetOrder(_ context.Context, ref string) (*payment.OrderState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.orders[ref]
	if !ok {
		return nil, apperrors.NotFound("stub.GetOrder", "order %s", ref)
	}
	return &st, nil
}

func (g *stubGateway) finish(ref string, outcome models.PaymentOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.orders[ref]
	st.Outcome = outcome
	g.orders[ref] = st
}

const webhookSecret = "whsec_test"

type testServer struct {
	*gin.Engine
	gateway *stubGateway
	bus     *propagation.MemoryBus
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	bus := propagation.NewMemoryBus()
	propagator := propagation.NewPropagator(bus, 2, 64, logger)
	propagator.Start()
	t.Cleanup(propagator.Stop)
	gw := &stubGateway{orders: map[string]payment.OrderState{}}

	led := ledger.NewLedger(store.Resources, propagator, logger)
	loc := locator.NewLocator(store.Resources, 5000, logger)
	fleetSvc := fleet.NewFleetService(store, propagator, logger)
	bookingSvc := booking.NewBookingService(store, loc, led, nil, propagator,
		booking.Pricing{BaseFareMinor: 30000, PerKmMinor: 2500, Currency: "inr"}, logger)
	paymentSvc := payment.NewPaymentService(store, gw, propagator, "inr", logger)

	hb := &handlers.HandlerBundle{
		Fleet:      handlers.NewFleetHandler(fleetSvc, loc, time.Hour),
		Booking:    handlers.NewBookingHandler(bookingSvc),
		Payment:    handlers.NewPaymentHandler(paymentSvc, bookingSvc, webhookSecret),
		Directions: handlers.NewDirectionsHandler(nil),
		Stats:      handlers.NewStatsHandler(stats.NewStatsService(store)),
		Admin:      handlers.NewAdminHandler(fleetSvc, led, bookingSvc),
		Stream:     handlers.NewStreamHandler(bus),
	}
	r := gin.New()
	RegisterRoutes(r, hb)
	return &testServer{Engine: r, gateway: gw, bus: bus}
}

// postWebhook posts a Stripe event signed with the test secret.
func postWebhook(t *testing.T, r http.Handler, payload string) int {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload), Secret: webhookSecret,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewBufferString(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func intentEvent(eventType, orderRef, bookingID string) string {
	return fmt.Sprintf(`{"id":"evt_%d","object":"event","type":%q,"data":{"object":{"id":%q,"object":"payment_intent","metadata":{"bookingId":%q}}}}`,
		time.Now().UnixNano(), eventType, orderRef, bookingID)
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func field(t *testing.T, m map[string]any, path ...string) any {
	t.Helper()
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			t.Fatalf("no object at %q in %v", p, m)
		}
		cur = obj[p]
	}
	return cur
}

func TestDispatchOverHTTP(t *testing.T) {
	r := newTestServer(t)
	admin, _ := utils.GenerateToken("root", utils.RoleAdmin, time.Hour)

	code, body := call(t, r, http.MethodPost, "/api/requesters", "", models.RegisterRequesterRequest{
		Name: "Asha", PhoneNumber: "+91999", Location: models.LatLng{Latitude: 12.97, Longitude: 77.59},
	})
	if code != http.StatusCreated {
		t.Fatalf("register requester: %d %v", code, body)
	}
	requesterID := field(t, body, "registration", "id").(string)
	requesterToken := field(t, body, "registration", "token").(string)

	code, body = call(t, r, http.MethodPost, "/api/resources", "", models.RegisterResourceRequest{
		OperatorName: "Ravi", OperatorPhone: "+91888", LicenseID: "KA-01",
		Location: models.LatLng{Latitude: 12.975, Longitude: 77.59},
	})
	if code != http.StatusCreated {
		t.Fatalf("register resource: %d %v", code, body)
	}
	resourceID := field(t, body, "registration", "id").(string)
	operatorToken := field(t, body, "registration", "token").(string)

	trip := map[string]any{
		"pickup":      models.LatLng{Latitude: 12.97, Longitude: 77.59},
		"destination": models.LatLng{Latitude: 12.99, Longitude: 77.6},
	}

	// unverified resources are never dispatched
	if code, body = call(t, r, http.MethodPost, "/api/bookings", requesterToken, trip); code != http.StatusConflict {
		t.Fatalf("expected 409 before verification, got %d %v", code, body)
	}
	if code, _ = call(t, r, http.MethodPut, "/api/admin/resources/"+resourceID+"/verify", operatorToken, map[string]bool{"verified": true}); code != http.StatusForbidden {
		t.Fatalf("operator must not verify, got %d", code)
	}
	if code, body = call(t, r, http.MethodPut, "/api/admin/resources/"+resourceID+"/verify", admin, map[string]bool{"verified": true}); code != http.StatusOK {
		t.Fatalf("verify: %d %v", code, body)
	}

	code, body = call(t, r, http.MethodGet, "/api/resources/nearby?lat=12.97&lon=77.59", requesterToken, nil)
	if code != http.StatusOK || len(field(t, body, "resources").([]any)) != 1 {
		t.Fatalf("nearby: %d %v", code, body)
	}

	code, body = call(t, r, http.MethodPost, "/api/bookings", requesterToken, trip)
	if code != http.StatusCreated {
		t.Fatalf("create booking: %d %v", code, body)
	}
	bookingID := field(t, body, "booking", "id").(string)
	if field(t, body, "booking", "resourceId") != resourceID || field(t, body, "booking", "status") != "pending" {
		t.Fatalf("unexpected booking %v", body)
	}

	code, body = call(t, r, http.MethodGet, "/api/resources/"+resourceID+"/queue", operatorToken, nil)
	if code != http.StatusOK || len(field(t, body, "bookings").([]any)) != 1 {
		t.Fatalf("queue: %d %v", code, body)
	}

	stranger, _ := utils.GenerateToken("someone-else", utils.RoleRequester, time.Hour)
	if code, _ = call(t, r, http.MethodGet, "/api/bookings/"+bookingID, stranger, nil); code != http.StatusForbidden {
		t.Fatalf("stranger read: %d", code)
	}
	if code, _ = call(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/accept", requesterToken, nil); code != http.StatusForbidden {
		t.Fatalf("requester accept: %d", code)
	}

	if code, body = call(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/accept", operatorToken, nil); code != http.StatusOK {
		t.Fatalf("accept: %d %v", code, body)
	}
	if code, body = call(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/accept", operatorToken, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("second accept: %d %v", code, body)
	}

	code, body = call(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/payment", requesterToken, nil)
	if code != http.StatusCreated || body["clientSecret"] != "cs_test" {
		t.Fatalf("payment order: %d %v", code, body)
	}
	orderRef := field(t, body, "transaction", "orderRef").(string)

	// the client's claim is ignored; the gateway still has the order open
	code, body = call(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/payment/outcome", requesterToken,
		map[string]string{"orderRef": orderRef, "outcome": "success"})
	if code != http.StatusOK || field(t, body, "transaction", "outcome") != "pending" {
		t.Fatalf("unpaid outcome: %d %v", code, body)
	}
	if _, body = call(t, r, http.MethodGet, "/api/bookings/"+bookingID, requesterToken, nil); field(t, body, "booking", "paymentStatus") != false {
		t.Fatalf("an unpaid order must not mark the booking paid: %v", body)
	}

	// a declined attempt is not final, the signed success that follows settles it
	if code = postWebhook(t, r, intentEvent("payment_intent.payment_failed", orderRef, bookingID)); code != http.StatusOK {
		t.Fatalf("declined webhook: %d", code)
	}
	r.gateway.finish(orderRef, models.PaymentSuccess)
	if code = postWebhook(t, r, intentEvent("payment_intent.succeeded", orderRef, bookingID)); code != http.StatusOK {
		t.Fatalf("succeeded webhook: %d", code)
	}
	code, body = call(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/payment/outcome", requesterToken,
		map[string]string{"orderRef": orderRef})
	if code != http.StatusOK || field(t, body, "transaction", "outcome") != "success" {
		t.Fatalf("paid outcome: %d %v", code, body)
	}

	// the accepted booking still holds the resource
	if code, body = call(t, r, http.MethodPut, "/api/admin/resources/"+resourceID+"/availability", admin, map[string]bool{"available": true}); code != http.StatusConflict {
		t.Fatalf("freeing a held resource: %d %v", code, body)
	}
	if _, body = call(t, r, http.MethodGet, "/api/admin/resources/"+resourceID+"/availability", admin, nil); body["available"] != false {
		t.Fatalf("held resource must stay unavailable: %v", body)
	}

	if code, body = call(t, r, http.MethodPost, "/api/bookings/"+bookingID+"/complete", operatorToken, nil); code != http.StatusOK {
		t.Fatalf("complete: %d %v", code, body)
	}
	if field(t, body, "booking", "paymentStatus") != true {
		t.Fatalf("payment should be recorded on the booking: %v", body)
	}

	code, body = call(t, r, http.MethodGet, "/api/admin/resources/"+resourceID+"/availability", admin, nil)
	if code != http.StatusOK || body["available"] != true {
		t.Fatalf("resource should be free after completion: %d %v", code, body)
	}

	code, body = call(t, r, http.MethodGet, "/api/stats", requesterToken, nil)
	if code != http.StatusOK || body["availableResources"] != float64(1) || body["activeBookings"] != float64(0) {
		t.Fatalf("stats: %d %v", code, body)
	}

	code, body = call(t, r, http.MethodGet, "/api/requesters/"+requesterID, requesterToken, nil)
	if code != http.StatusOK || body["id"] != requesterID {
		t.Fatalf("get requester: %d %v", code, body)
	}
}

func TestPublicEdges(t *testing.T) {
	r := newTestServer(t)

	if code, _ := call(t, r, http.MethodGet, "/health", "", nil); code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
	if code, _ := call(t, r, http.MethodGet, "/api/stats", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("stats without token: %d", code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewBufferString(`{"type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unsigned webhook: %d", w.Code)
	}

	token, _ := utils.GenerateToken("u1", utils.RoleRequester, time.Hour)
	if code, _ := call(t, r, http.MethodGet, "/api/routes?originLat=1&originLng=1&destLat=2&destLng=2", token, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("route without router: %d", code)
	}
	if code, _ := call(t, r, http.MethodGet, "/api/routes?originLat=abc", token, nil); code != http.StatusBadRequest {
		t.Fatalf("bad route query: %d", code)
	}
}
