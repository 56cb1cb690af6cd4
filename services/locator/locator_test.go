package locator

import (
	"context"
	"errors"
	"testing"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/models"

	"go.uber.org/zap"
)

// 0.0108 degrees of latitude is ~1.2 km, 0.027 is ~3.0 km.
func newStore(t *testing.T, resources ...models.Resource) *repository.Store {
	t.Helper()
	store := repository.NewMemoryStore()
	for i := range resources {
		if err := store.Resources.Create(context.Background(), &resources[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func res(id string, lat, lon float64, available, verified bool) models.Resource {
	return models.Resource{ID: id, Location: models.NewPoint(lat, lon), Available: available, Verified: verified}
}

func TestFindNearestTieGoesToLowestID(t *testing.T) {
	store := newStore(t,
		res("A", 10.027, 10, true, true),
		res("C", 10.0108, 10, true, true),
		res("B", 10.0108, 10, true, true),
	)
	l := NewLocator(store.Resources, 5000, zap.NewNop())

	got, err := l.FindNearest(context.Background(), models.NewPoint(10, 10), 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Resource.ID != "B" {
		t.Fatalf("expected B, got %s", got.Resource.ID)
	}
}

func TestFindNearestSkipsUnbookable(t *testing.T) {
	store := newStore(t,
		res("busy", 10.001, 10, false, true),
		res("unverified", 10.002, 10, true, false),
		res("ok", 10.01, 10, true, true),
	)
	l := NewLocator(store.Resources, 5000, zap.NewNop())

	got, err := l.FindNearest(context.Background(), models.NewPoint(10, 10), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Resource.ID != "ok" {
		t.Fatalf("expected ok, got %s", got.Resource.ID)
	}
}

func TestFindNearestNothingInRadius(t *testing.T) {
	store := newStore(t, res("far", 10.1, 10, true, true))
	l := NewLocator(store.Resources, 5000, zap.NewNop())

	_, err := l.FindNearest(context.Background(), models.NewPoint(10, 10), 2000)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindNearestInvalidCoordinates(t *testing.T) {
	l := NewLocator(repository.NewMemoryStore().Resources, 5000, zap.NewNop())
	_, err := l.FindNearest(context.Background(), models.NewPoint(95, 10), 2000)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestNearbyReturnsRankedList(t *testing.T) {
	store := newStore(t,
		res("A", 10.027, 10, true, true),
		res("B", 10.0108, 10, true, true),
	)
	l := NewLocator(store.Resources, 5000, zap.NewNop())

	got, err := l.Nearby(context.Background(), models.NewPoint(10, 10), 5000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Resource.ID != "B" || got[1].Resource.ID != "A" {
		t.Fatalf("unexpected ranking: %+v", got)
	}
	if got[0].DistanceMeters < 1100 || got[0].DistanceMeters > 1300 {
		t.Fatalf("unexpected distance %.1f", got[0].DistanceMeters)
	}
}
