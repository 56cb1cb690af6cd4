package booking

import (
	"context"
	"time"

	"fastaid/database/repository"
	"fastaid/models"
	"fastaid/services/ledger"
	"fastaid/services/locator"
	"fastaid/services/propagation"
	"fastaid/services/routing"

	"go.uber.org/zap"
)

// BookingService drives the booking lifecycle:
//
//	pending  -> accepted | rejected | cancelled
//	accepted -> completed | cancelled
//
// Every transition is a conditional write on the current status.
type BookingService interface {
	Create(ctx context.Context, requesterID string, pickup, destination models.GeoPoint) (*models.Booking, error)
	Get(ctx context.Context, bookingID string) (*models.Booking, error)
	Accept(ctx context.Context, bookingID, resourceID string) (*models.Booking, error)
	Reject(ctx context.Context, bookingID string) (*models.Booking, error)
	Complete(ctx context.Context, bookingID, resourceID string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID string) (*models.Booking, error)
	ListForRequester(ctx context.Context, requesterID string) ([]models.Booking, error)
	PendingForResource(ctx context.Context, resourceID string) ([]models.Booking, error)
	ActiveCount(ctx context.Context, requesterID string) (int64, error)
}

// Pricing holds the fare parameters, in minor currency units.
type Pricing struct {
	BaseFareMinor int64
	PerKmMinor    int64
	Currency      string
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Requesters repository.RequesterRepository
	Bookings   repository.BookingRepository
	Locator    locator.Locator
	Ledger     ledger.Ledger
	Router     routing.Router // optional
	Notifier   propagation.Notifier
	Pricing    Pricing
	Logger     *zap.Logger

	now func() time.Time
}

func NewBookingService(
	store *repository.Store,
	loc locator.Locator,
	led ledger.Ledger,
	router routing.Router,
	notifier propagation.Notifier,
	pricing Pricing,
	logger *zap.Logger,
) *DefaultBookingService {
	if notifier == nil {
		notifier = propagation.NopNotifier{}
	}
	return &DefaultBookingService{
		Requesters: store.Requesters,
		Bookings:   store.Bookings,
		Locator:    loc,
		Ledger:     led,
		Router:     router,
		Notifier:   notifier,
		Pricing:    pricing,
		Logger:     logger,
		now:        time.Now,
	}
}
