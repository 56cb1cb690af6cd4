package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := AlreadyHandled("booking.Accept", "booking %s was handled", "b1")
	wrapped := fmt.Errorf("handler: %w", err)

	if !errors.Is(wrapped, ErrAlreadyHandled) {
		t.Fatalf("expected wrapped error to match ErrAlreadyHandled")
	}
	if errors.Is(wrapped, ErrInvalidTransition) {
		t.Fatalf("already handled must not match invalid transition")
	}
	if KindOf(wrapped) != KindAlreadyHandled {
		t.Fatalf("KindOf = %s", KindOf(wrapped))
	}
}

func TestInternalKeepsTaggedKind(t *testing.T) {
	tagged := NotFound("repo.GetByID", "booking %s", "x")
	if got := Internal("svc", tagged); !errors.Is(got, ErrNotFound) {
		t.Fatalf("tagged error lost its kind: %v", got)
	}

	plain := errors.New("socket closed")
	got := Internal("svc", plain)
	if !errors.Is(got, ErrInternal) {
		t.Fatalf("plain error should become internal: %v", got)
	}
	if !errors.Is(got, plain) {
		t.Fatalf("cause should stay reachable")
	}
	if Internal("svc", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrNoResourceAvailable, http.StatusConflict},
		{ErrAlreadyHandled, http.StatusConflict},
		{ErrInvalidTransition, http.StatusUnprocessableEntity},
		{ErrInvalidArgument, http.StatusBadRequest},
		{ErrExternalServiceUnavailable, http.StatusServiceUnavailable},
		{ErrPaymentFailed, http.StatusPaymentRequired},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindExternalServiceUnavailable, "routing.Route", errors.New("dial tcp: refused"))
	want := "routing.Route: external_service_unavailable: dial tcp: refused"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}
