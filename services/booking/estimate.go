package booking

import (
	"context"
	"math"

	"fastaid/models"
	"fastaid/utils"

	"go.uber.org/zap"
)

// Estimate is the quote attached to a new booking.
type Estimate struct {
	CostMinor      int64
	ETASeconds     int
	ETAKnown       bool
	DistanceMeters float64
}

// estimate quotes the trip. The ETA is the drive from the resource to the
// pickup; the fare is priced on the pickup-to-destination distance. Routing
// failures leave the ETA unknown and fall back to great-circle distance.
func (s *DefaultBookingService) estimate(ctx context.Context, resourceAt, pickup, destination models.GeoPoint) Estimate {
	var est Estimate

	if s.Router != nil {
		if approach, err := s.Router.Route(ctx, resourceAt, pickup); err == nil {
			est.ETASeconds = int(math.Round(approach.DurationSeconds))
			est.ETAKnown = true
		} else {
			s.Logger.Warn("Routing unavailable, ETA unknown", zap.Error(err))
		}
	}

	est.DistanceMeters = utils.DistanceMeters(pickup, destination)
	if s.Router != nil {
		if trip, err := s.Router.Route(ctx, pickup, destination); err == nil {
			est.DistanceMeters = trip.DistanceMeters
		} else {
			s.Logger.Warn("Routing unavailable, pricing on straight-line distance", zap.Error(err))
		}
	}

	est.CostMinor = s.Pricing.Fare(est.DistanceMeters)
	return est
}

// Fare returns base fare plus the per-km rate for the distance.
func (p Pricing) Fare(distanceMeters float64) int64 {
	km := distanceMeters / 1000
	return p.BaseFareMinor + int64(math.Round(float64(p.PerKmMinor)*km))
}
