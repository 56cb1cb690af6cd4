package repository

import (
	"context"
	"database/sql"
	"time"

	memoryRepo "fastaid/database/repository/memory"
	mongoRepo "fastaid/database/repository/mongo"
	postgresRepo "fastaid/database/repository/postgres"
	"fastaid/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// RequesterRepository persists requesters.
type RequesterRepository interface {
	Create(ctx context.Context, requester *models.Requester) error
	GetByID(ctx context.Context, id string) (*models.Requester, error)
	UpdateLocation(ctx context.Context, id string, location models.GeoPoint) error
}

// ResourceRepository persists transport resources. SwapAvailable is the only
// conditional write on the available flag.
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	UpdateLocation(ctx context.Context, id string, location models.GeoPoint) error
	NearestAvailable(ctx context.Context, point models.GeoPoint, radiusMeters float64, limit int) ([]models.ResourceDistance, error)
	SwapAvailable(ctx context.Context, id string, expected, next bool) (bool, error)
	SetAvailable(ctx context.Context, id string, available bool) error
	SetVerified(ctx context.Context, id string, verified bool) error
	CountAvailable(ctx context.Context) (int64, error)
}

// BookingRepository persists bookings. TransitionStatus moves a booking from
// one of the given statuses to next and reports whether it matched. An empty
// resourceID matches any resource.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	TransitionStatus(ctx context.Context, id string, from []models.BookingStatus, next models.BookingStatus, resourceID string, at time.Time) (bool, error)
	SetPaymentStatus(ctx context.Context, id string, paid bool) error
	ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error)
	ListByResource(ctx context.Context, resourceID string, statuses []models.BookingStatus) ([]models.Booking, error)
	CountActive(ctx context.Context, requesterID string) (int64, error)
	RecentCompleted(ctx context.Context, limit int) ([]models.Booking, error)
}

// PaymentRepository persists payment transactions. Create fails with an
// already-handled error when the booking already has a pending transaction.
type PaymentRepository interface {
	Create(ctx context.Context, tx *models.PaymentTransaction) error
	GetByOrderRef(ctx context.Context, orderRef string) (*models.PaymentTransaction, error)
	GetPendingByBooking(ctx context.Context, bookingID string) (*models.PaymentTransaction, error)
	AttachOrderRef(ctx context.Context, id, orderRef string) error
	Settle(ctx context.Context, id string, outcome models.PaymentOutcome, at time.Time) (bool, error)
}

// Store groups the repositories of one backend.
type Store struct {
	Requesters RequesterRepository
	Resources  ResourceRepository
	Bookings   BookingRepository
	Payments   PaymentRepository

	ping func(ctx context.Context) error
}

// Ping reports whether the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// NewMemoryStore builds an in-process store used by tests and local runs.
func NewMemoryStore() *Store {
	db := memoryRepo.New()
	return &Store{
		Requesters: db.Requesters(),
		Resources:  db.Resources(),
		Bookings:   db.Bookings(),
		Payments:   db.Payments(),
	}
}

// NewMongoStore builds the store on top of a MongoDB database and ensures its indexes.
func NewMongoStore(db *mongo.Database) (*Store, error) {
	if err := mongoRepo.EnsureIndexes(db); err != nil {
		return nil, err
	}
	return &Store{
		Requesters: mongoRepo.NewRequesterRepo(db),
		Resources:  mongoRepo.NewResourceRepo(db),
		Bookings:   mongoRepo.NewBookingRepo(db),
		Payments:   mongoRepo.NewPaymentRepo(db),
		ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, nil)
		},
	}, nil
}

// NewPostgresStore builds the store on top of a Postgres pool and applies the schema.
func NewPostgresStore(db *sql.DB) (*Store, error) {
	if err := postgresRepo.Migrate(db); err != nil {
		return nil, err
	}
	return &Store{
		Requesters: postgresRepo.NewRequesterRepo(db),
		Resources:  postgresRepo.NewResourceRepo(db),
		Bookings:   postgresRepo.NewBookingRepo(db),
		Payments:   postgresRepo.NewPaymentRepo(db),
		ping:       db.PingContext,
	}, nil
}
