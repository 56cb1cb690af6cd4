package mongoRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fastaid/apperrors"
	"fastaid/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo stores bookings in the "bookings" collection.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{coll: db.Collection(bookingsCollection)}
}

func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyHandled("mongo.Bookings.Create", "booking %s exists", booking.ID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	var booking models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("mongo.Bookings.GetByID", "booking %s", id)
		}
		return nil, fmt.Errorf("failed to fetch booking with id %s: %w", id, err)
	}
	return &booking, nil
}

// TransitionStatus is a single conditional UpdateOne; MatchedCount tells the
// caller whether it won.
func (r *MongoBookingRepo) TransitionStatus(ctx context.Context, id string, from []models.BookingStatus, next models.BookingStatus, resourceID string, at time.Time) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": bson.M{"$in": from}}
	if resourceID != "" {
		filter["resourceId"] = resourceID
	}
	set := bson.M{"status": next, "updatedAt": at}
	if next == models.BookingAccepted {
		set["acceptedAt"] = at
	}
	if next.Terminal() {
		set["closedAt"] = at
	}

	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to transition booking %s to %s: %w", id, next, err)
	}
	return result.MatchedCount == 1, nil
}

func (r *MongoBookingRepo) SetPaymentStatus(ctx context.Context, id string, paid bool) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	update := bson.M{"$set": bson.M{"paymentStatus": paid, "updatedAt": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update payment status of booking %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("mongo.Bookings.SetPaymentStatus", "booking %s", id)
	}
	return nil
}

func (r *MongoBookingRepo) ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	return r.find(ctx, bson.M{"requesterId": requesterID}, 0)
}

func (r *MongoBookingRepo) ListByResource(ctx context.Context, resourceID string, statuses []models.BookingStatus) ([]models.Booking, error) {
	filter := bson.M{"resourceId": resourceID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.find(ctx, filter, 0)
}

func (r *MongoBookingRepo) CountActive(ctx context.Context, requesterID string) (int64, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	filter := bson.M{"status": bson.M{"$in": models.ActiveStatuses}}
	if requesterID != "" {
		filter["requesterId"] = requesterID
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return n, nil
}

func (r *MongoBookingRepo) RecentCompleted(ctx context.Context, limit int) ([]models.Booking, error) {
	return r.find(ctx, bson.M{"status": models.BookingCompleted}, int64(limit))
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M, limit int64) ([]models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("booking query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}
