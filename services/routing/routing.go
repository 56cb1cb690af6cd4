package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fastaid/apperrors"
	"fastaid/metrics"
	"fastaid/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Route is a driving route between two points.
type Route struct {
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
	Polyline        string  `json:"polyline"`
}

// Router resolves driving routes. Failures are external-service errors.
type Router interface {
	Route(ctx context.Context, from, to models.GeoPoint) (*Route, error)
}

// osrmResponse is the subset of the OSRM route/v1 response we read.
type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

// OSRMRouter queries an OSRM server and caches answers in Redis.
type OSRMRouter struct {
	BaseURL  string
	Client   *http.Client
	Cache    *redis.Client
	CacheTTL time.Duration
	Logger   *zap.Logger
}

func NewOSRMRouter(baseURL string, timeout time.Duration, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *OSRMRouter {
	return &OSRMRouter{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   &http.Client{Timeout: timeout},
		Cache:    cache,
		CacheTTL: ttl,
		Logger:   logger,
	}
}

func cacheKey(from, to models.GeoPoint) string {
	return fmt.Sprintf("route:%.5f,%.5f:%.5f,%.5f", from.Lat(), from.Lon(), to.Lat(), to.Lon())
}

func (r *OSRMRouter) Route(ctx context.Context, from, to models.GeoPoint) (*Route, error) {
	key := cacheKey(from, to)
	if cached := r.fromCache(ctx, key); cached != nil {
		metrics.RouteLookups.WithLabelValues("cache").Inc()
		return cached, nil
	}

	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=polyline",
		r.BaseURL, from.Lon(), from.Lat(), to.Lon(), to.Lat())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Internal("routing.Route", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		metrics.RouteLookups.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(apperrors.KindExternalServiceUnavailable, "routing.Route", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.RouteLookups.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(apperrors.KindExternalServiceUnavailable, "routing.Route",
			fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode == http.StatusBadRequest && body.Code == "NoRoute" {
		return nil, apperrors.NotFound("routing.Route", "no route found")
	}
	if resp.StatusCode != http.StatusOK || body.Code != "Ok" {
		metrics.RouteLookups.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(apperrors.KindExternalServiceUnavailable, "routing.Route",
			fmt.Errorf("status %d code %q: %s", resp.StatusCode, body.Code, body.Message))
	}
	if len(body.Routes) == 0 {
		return nil, apperrors.NotFound("routing.Route", "no route found")
	}

	route := &Route{
		DistanceMeters:  body.Routes[0].Distance,
		DurationSeconds: body.Routes[0].Duration,
		Polyline:        body.Routes[0].Geometry,
	}
	metrics.RouteLookups.WithLabelValues("remote").Inc()
	r.toCache(ctx, key, route)
	return route, nil
}

func (r *OSRMRouter) fromCache(ctx context.Context, key string) *Route {
	if r.Cache == nil {
		return nil
	}
	raw, err := r.Cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.Logger.Warn("Route cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var route Route
	if err := json.Unmarshal(raw, &route); err != nil {
		return nil
	}
	return &route
}

func (r *OSRMRouter) toCache(ctx context.Context, key string, route *Route) {
	if r.Cache == nil || r.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(route)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, raw, r.CacheTTL).Err(); err != nil {
		r.Logger.Warn("Route cache write failed", zap.String("key", key), zap.Error(err))
	}
}
