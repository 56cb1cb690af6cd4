package booking

import (
	"context"

	"fastaid/apperrors"
	"fastaid/models"
)

func (s *DefaultBookingService) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("booking.Get", err)
	}
	return b, nil
}

// ListForRequester returns the requester's bookings, newest first.
func (s *DefaultBookingService) ListForRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	bookings, err := s.Bookings.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, apperrors.Internal("booking.ListForRequester", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// PendingForResource is the operator's queue: bookings waiting on this resource
// or currently being served by it.
func (s *DefaultBookingService) PendingForResource(ctx context.Context, resourceID string) ([]models.Booking, error) {
	bookings, err := s.Bookings.ListByResource(ctx, resourceID, models.ActiveStatuses)
	if err != nil {
		return nil, apperrors.Internal("booking.PendingForResource", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// ActiveCount counts pending and accepted bookings. An empty requesterID counts system-wide.
func (s *DefaultBookingService) ActiveCount(ctx context.Context, requesterID string) (int64, error) {
	n, err := s.Bookings.CountActive(ctx, requesterID)
	if err != nil {
		return 0, apperrors.Internal("booking.ActiveCount", err)
	}
	return n, nil
}
