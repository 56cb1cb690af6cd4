package booking

import (
	"context"

	"fastaid/apperrors"
	"fastaid/metrics"
	"fastaid/models"
	"fastaid/services/propagation"

	"go.uber.org/zap"
)

// edge is one allowed move in the lifecycle graph.
type edge struct {
	from   []models.BookingStatus
	to     models.BookingStatus
	change string
}

var (
	acceptEdge   = edge{[]models.BookingStatus{models.BookingPending}, models.BookingAccepted, models.ChangeBookingAccepted}
	rejectEdge   = edge{[]models.BookingStatus{models.BookingPending}, models.BookingRejected, models.ChangeBookingRejected}
	completeEdge = edge{[]models.BookingStatus{models.BookingAccepted}, models.BookingCompleted, models.ChangeBookingCompleted}
	cancelEdge   = edge{[]models.BookingStatus{models.BookingPending, models.BookingAccepted}, models.BookingCancelled, models.ChangeBookingCancelled}
)

// Accept moves a pending booking to accepted. Only the assigned resource can
// win; any other caller is told the booking was already handled.
func (s *DefaultBookingService) Accept(ctx context.Context, bookingID, resourceID string) (*models.Booking, error) {
	return s.transition(ctx, "booking.Accept", bookingID, resourceID, acceptEdge)
}

func (s *DefaultBookingService) Reject(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.transition(ctx, "booking.Reject", bookingID, "", rejectEdge)
}

func (s *DefaultBookingService) Complete(ctx context.Context, bookingID, resourceID string) (*models.Booking, error) {
	return s.transition(ctx, "booking.Complete", bookingID, resourceID, completeEdge)
}

func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.transition(ctx, "booking.Cancel", bookingID, "", cancelEdge)
}

func (s *DefaultBookingService) transition(ctx context.Context, op, bookingID, resourceID string, e edge) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Internal(op, err)
	}
	if !allowed(b.Status, e.from) {
		metrics.BookingTransitions.WithLabelValues(string(e.to), "invalid").Inc()
		return nil, apperrors.InvalidTransition(op, "booking %s is %s, cannot move to %s", bookingID, b.Status, e.to)
	}
	if resourceID != "" && b.ResourceID != resourceID {
		metrics.BookingTransitions.WithLabelValues(string(e.to), "lost").Inc()
		return nil, apperrors.AlreadyHandled(op, "booking %s is assigned to another resource", bookingID)
	}

	at := s.now()
	ok, err := s.Bookings.TransitionStatus(ctx, bookingID, e.from, e.to, resourceID, at)
	if err != nil {
		return nil, apperrors.Internal(op, err)
	}
	if !ok {
		metrics.BookingTransitions.WithLabelValues(string(e.to), "lost").Inc()
		return nil, apperrors.AlreadyHandled(op, "booking %s was handled concurrently", bookingID)
	}
	metrics.BookingTransitions.WithLabelValues(string(e.to), "applied").Inc()

	b.Status = e.to
	b.UpdatedAt = at
	if e.to == models.BookingAccepted {
		b.AcceptedAt = &at
	}
	if e.to.Terminal() {
		b.ClosedAt = &at
		// The status write is committed; a failed release is left for ledger repair.
		if err := s.Ledger.Release(context.WithoutCancel(ctx), b.ResourceID); err != nil {
			s.Logger.Error("Failed to release resource",
				zap.String("bookingID", bookingID),
				zap.String("resourceID", b.ResourceID),
				zap.Error(err))
		}
	}

	s.Logger.Info("Booking transitioned",
		zap.String("bookingID", bookingID),
		zap.String("status", string(e.to)))
	s.Notifier.Notify(propagation.BookingSignals(b, e.change)...)
	return b, nil
}

func allowed(status models.BookingStatus, from []models.BookingStatus) bool {
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}
