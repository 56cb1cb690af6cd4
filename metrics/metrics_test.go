package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreExported(t *testing.T) {
	BookingTransitions.WithLabelValues("accepted", "applied").Inc()
	if got := testutil.ToFloat64(BookingTransitions.WithLabelValues("accepted", "applied")); got < 1 {
		t.Fatalf("expected counter to be incremented, got %v", got)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "fastaid_booking_transitions_total") {
		t.Fatalf("metrics output missing booking transitions")
	}
}
