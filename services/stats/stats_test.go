package stats

import (
	"context"
	"testing"
	"time"

	"fastaid/database/repository"
	"fastaid/models"
)

func TestDashboard(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	store.Resources.Create(ctx, &models.Resource{ID: "r1", Available: true, Verified: true, Location: models.NewPoint(1, 1)})
	store.Resources.Create(ctx, &models.Resource{ID: "r2", Available: false, Verified: true, Location: models.NewPoint(1, 1)})

	now := time.Now()
	seed := []models.Booking{
		{ID: "b1", RequesterID: "u1", Status: models.BookingPending, CreatedAt: now},
		{ID: "b2", RequesterID: "u2", Status: models.BookingAccepted, CreatedAt: now},
		{ID: "b3", RequesterID: "u1", Status: models.BookingCompleted, ETAKnown: true, EstimatedTimeSec: 300, CreatedAt: now},
		{ID: "b4", RequesterID: "u1", Status: models.BookingCompleted, ETAKnown: true, EstimatedTimeSec: 540, CreatedAt: now},
		{ID: "b5", RequesterID: "u1", Status: models.BookingCompleted, ETAKnown: false, CreatedAt: now},
	}
	for i := range seed {
		store.Bookings.Create(ctx, &seed[i])
	}

	got, err := NewStatsService(store).Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AvailableResources != 1 || got.ActiveBookings != 1 || got.SystemActiveBookings != 2 {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if got.AverageResponseMinute != 7 {
		t.Fatalf("expected 7 minute average, got %v", got.AverageResponseMinute)
	}
}
