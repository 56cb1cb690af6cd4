package stats

import (
	"context"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/models"
)

const responseSample = 50

// StatsService computes the dashboard counters.
type StatsService interface {
	Dashboard(ctx context.Context, requesterID string) (*models.DashboardStats, error)
}

type DefaultStatsService struct {
	Resources repository.ResourceRepository
	Bookings  repository.BookingRepository
}

func NewStatsService(store *repository.Store) *DefaultStatsService {
	return &DefaultStatsService{Resources: store.Resources, Bookings: store.Bookings}
}

// Dashboard returns bookable resources, the requester's active bookings,
// system-wide active bookings and the mean quoted response time over recent
// completed bookings with a known ETA.
func (s *DefaultStatsService) Dashboard(ctx context.Context, requesterID string) (*models.DashboardStats, error) {
	const op = "stats.Dashboard"
	var out models.DashboardStats
	var err error

	if out.AvailableResources, err = s.Resources.CountAvailable(ctx); err != nil {
		return nil, apperrors.Internal(op, err)
	}
	if requesterID != "" {
		if out.ActiveBookings, err = s.Bookings.CountActive(ctx, requesterID); err != nil {
			return nil, apperrors.Internal(op, err)
		}
	}
	if out.SystemActiveBookings, err = s.Bookings.CountActive(ctx, ""); err != nil {
		return nil, apperrors.Internal(op, err)
	}

	recent, err := s.Bookings.RecentCompleted(ctx, responseSample)
	if err != nil {
		return nil, apperrors.Internal(op, err)
	}
	var total, n int
	for _, b := range recent {
		if b.ETAKnown {
			total += b.EstimatedTimeSec
			n++
		}
	}
	if n > 0 {
		out.AverageResponseMinute = float64(total) / float64(n) / 60
	}
	return &out, nil
}
