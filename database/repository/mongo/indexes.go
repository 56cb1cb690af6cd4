package mongoRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	requestersCollection = "requesters"
	resourcesCollection  = "resources"
	bookingsCollection   = "bookings"
	paymentsCollection   = "payments"
)

func newContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

// EnsureIndexes creates the indexes every collection relies on.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	idIdx := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}

	// $geoNear needs the 2dsphere index; the compound one serves the filtered query.
	resourceIdx := []mongo.IndexModel{
		idIdx,
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{
			{Key: "location", Value: "2dsphere"},
			{Key: "available", Value: 1},
			{Key: "verified", Value: 1},
		}},
	}
	bookingIdx := []mongo.IndexModel{
		idIdx,
		{Keys: bson.D{{Key: "requesterId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "resourceId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "closedAt", Value: -1}}},
	}
	// Partial unique index: at most one pending transaction per booking.
	paymentIdx := []mongo.IndexModel{
		idIdx,
		{
			Keys: bson.D{{Key: "bookingId", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"outcome": "pending",
			}),
		},
		{
			Keys: bson.D{{Key: "orderRef", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{
				"orderRef": bson.M{"$gt": ""},
			}),
		},
	}

	all := map[string][]mongo.IndexModel{
		requestersCollection: {idIdx},
		resourcesCollection:  resourceIdx,
		bookingsCollection:   bookingIdx,
		paymentsCollection:   paymentIdx,
	}
	for name, idx := range all {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
