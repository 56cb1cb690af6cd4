package booking

import (
	"context"
	"errors"

	"fastaid/apperrors"
	"fastaid/models"
	"fastaid/services/propagation"
	"fastaid/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// claimAttempts is one locate-and-claim plus one retry after a lost claim.
const claimAttempts = 2

// Create assigns the nearest available resource to a new pending booking.
// The resource is claimed on the ledger before the booking is written, and
// released again if the write fails.
func (s *DefaultBookingService) Create(ctx context.Context, requesterID string, pickup, destination models.GeoPoint) (*models.Booking, error) {
	const op = "booking.Create"

	if !utils.ValidPoint(pickup) {
		return nil, apperrors.InvalidArgument(op, "invalid pickup coordinates")
	}
	if !utils.ValidPoint(destination) {
		return nil, apperrors.InvalidArgument(op, "invalid destination coordinates")
	}
	if _, err := s.Requesters.GetByID(ctx, requesterID); err != nil {
		return nil, apperrors.Internal(op, err)
	}

	claimed, err := s.claimNearest(ctx, op, pickup)
	if err != nil {
		return nil, err
	}

	est := s.estimate(ctx, claimed.Resource.Location, pickup, destination)
	now := s.now()
	b := &models.Booking{
		ID:                  uuid.New().String(),
		RequesterID:         requesterID,
		ResourceID:          claimed.Resource.ID,
		Pickup:              pickup,
		Destination:         destination,
		Status:              models.BookingPending,
		EstimatedCost:       est.CostMinor,
		Currency:            s.Pricing.Currency,
		EstimatedTimeSec:    est.ETASeconds,
		ETAKnown:            est.ETAKnown,
		RouteDistanceMeters: est.DistanceMeters,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.Bookings.Create(ctx, b); err != nil {
		if relErr := s.Ledger.Release(context.WithoutCancel(ctx), claimed.Resource.ID); relErr != nil {
			s.Logger.Error("Failed to release resource after booking insert failed",
				zap.String("resourceID", claimed.Resource.ID), zap.Error(relErr))
		}
		return nil, apperrors.Internal(op, err)
	}

	s.Logger.Info("Booking created",
		zap.String("bookingID", b.ID),
		zap.String("requesterID", requesterID),
		zap.String("resourceID", b.ResourceID),
		zap.Float64("distanceMeters", claimed.DistanceMeters))
	s.Notifier.Notify(propagation.BookingSignals(b, models.ChangeBookingCreated)...)
	return b, nil
}

func (s *DefaultBookingService) claimNearest(ctx context.Context, op string, pickup models.GeoPoint) (*models.ResourceDistance, error) {
	for attempt := 1; attempt <= claimAttempts; attempt++ {
		candidate, err := s.Locator.FindNearest(ctx, pickup, 0)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.New(apperrors.KindNoResourceAvailable, op, "no available resource nearby")
			}
			return nil, err
		}

		ok, err := s.Ledger.Claim(ctx, candidate.Resource.ID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if ok {
			return candidate, nil
		}
		s.Logger.Info("Lost claim on nearest resource",
			zap.String("resourceID", candidate.Resource.ID),
			zap.Int("attempt", attempt))
	}
	return nil, apperrors.New(apperrors.KindNoResourceAvailable, op, "nearest resources were claimed concurrently")
}
