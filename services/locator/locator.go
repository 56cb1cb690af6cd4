package locator

import (
	"context"
	"errors"
	"sort"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/metrics"
	"fastaid/models"
	"fastaid/utils"

	"go.uber.org/zap"
)

const candidateLimit = 25

// Locator finds the nearest bookable resource.
type Locator interface {
	FindNearest(ctx context.Context, point models.GeoPoint, radiusMeters float64) (*models.ResourceDistance, error)
	Nearby(ctx context.Context, point models.GeoPoint, radiusMeters float64, limit int) ([]models.ResourceDistance, error)
}

// DefaultLocator ranks the store's geospatial candidates itself, so the
// result does not depend on the backend's ordering.
type DefaultLocator struct {
	Resources     repository.ResourceRepository
	DefaultRadius float64
	Logger        *zap.Logger
}

func NewLocator(resources repository.ResourceRepository, defaultRadius float64, logger *zap.Logger) *DefaultLocator {
	return &DefaultLocator{Resources: resources, DefaultRadius: defaultRadius, Logger: logger}
}

// FindNearest returns the closest available, verified resource within the
// radius. Ties go to the lowest ID. Nothing in range is a not-found error.
func (l *DefaultLocator) FindNearest(ctx context.Context, point models.GeoPoint, radiusMeters float64) (*models.ResourceDistance, error) {
	ranked, err := l.rank(ctx, "locator.FindNearest", point, radiusMeters, candidateLimit)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		metrics.LocatorMisses.Inc()
		l.Logger.Info("No resource within radius",
			zap.Float64("lat", point.Lat()),
			zap.Float64("lon", point.Lon()),
			zap.Float64("radius", l.radius(radiusMeters)))
		return nil, apperrors.NotFound("locator.FindNearest", "no available resource within %.0fm", l.radius(radiusMeters))
	}
	nearest := ranked[0]
	return &nearest, nil
}

// Nearby returns up to limit ranked candidates. An empty result is not an error.
func (l *DefaultLocator) Nearby(ctx context.Context, point models.GeoPoint, radiusMeters float64, limit int) ([]models.ResourceDistance, error) {
	if limit <= 0 || limit > candidateLimit {
		limit = candidateLimit
	}
	ranked, err := l.rank(ctx, "locator.Nearby", point, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (l *DefaultLocator) radius(r float64) float64 {
	if r <= 0 {
		return l.DefaultRadius
	}
	return r
}

func (l *DefaultLocator) rank(ctx context.Context, op string, point models.GeoPoint, radiusMeters float64, limit int) ([]models.ResourceDistance, error) {
	if !utils.ValidPoint(point) {
		return nil, apperrors.InvalidArgument(op, "invalid coordinates %v", point.Coordinates)
	}
	radius := l.radius(radiusMeters)

	candidates, err := l.Resources.NearestAvailable(ctx, point, radius, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperrors.Wrap(apperrors.KindExternalServiceUnavailable, op, err)
		}
		return nil, apperrors.Internal(op, err)
	}

	ranked := make([]models.ResourceDistance, 0, len(candidates))
	for _, c := range candidates {
		if !c.Resource.Bookable() {
			continue
		}
		d := utils.DistanceMeters(point, c.Resource.Location)
		if d > radius {
			continue
		}
		ranked = append(ranked, models.ResourceDistance{Resource: c.Resource, DistanceMeters: d})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistanceMeters != ranked[j].DistanceMeters {
			return ranked[i].DistanceMeters < ranked[j].DistanceMeters
		}
		return ranked[i].Resource.ID < ranked[j].Resource.ID
	})
	return ranked, nil
}
