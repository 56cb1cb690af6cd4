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
)

// MongoPaymentRepo stores payment transactions in the "payments" collection.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

func NewPaymentRepo(db *mongo.Database) *MongoPaymentRepo {
	return &MongoPaymentRepo{coll: db.Collection(paymentsCollection)}
}

// Create relies on the partial unique index to reject a second pending row.
func (r *MongoPaymentRepo) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyHandled("mongo.Payments.Create", "booking %s already has a pending payment", tx.BookingID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) GetByOrderRef(ctx context.Context, orderRef string) (*models.PaymentTransaction, error) {
	if orderRef == "" {
		return nil, apperrors.NotFound("mongo.Payments.GetByOrderRef", "empty order reference")
	}
	return r.findOne(ctx, "mongo.Payments.GetByOrderRef", bson.M{"orderRef": orderRef})
}

func (r *MongoPaymentRepo) GetPendingByBooking(ctx context.Context, bookingID string) (*models.PaymentTransaction, error) {
	return r.findOne(ctx, "mongo.Payments.GetPendingByBooking", bson.M{"bookingId": bookingID, "outcome": models.PaymentPending})
}

func (r *MongoPaymentRepo) AttachOrderRef(ctx context.Context, id, orderRef string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"orderRef": orderRef}})
	if err != nil {
		return fmt.Errorf("failed to attach order to payment %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("mongo.Payments.AttachOrderRef", "payment %s", id)
	}
	return nil
}

// Settle moves a pending transaction to its terminal outcome exactly once.
func (r *MongoPaymentRepo) Settle(ctx context.Context, id string, outcome models.PaymentOutcome, at time.Time) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	filter := bson.M{"id": id, "outcome": models.PaymentPending}
	update := bson.M{"$set": bson.M{"outcome": outcome, "settledAt": at}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to settle payment %s: %w", id, err)
	}
	return result.MatchedCount == 1, nil
}

func (r *MongoPaymentRepo) findOne(ctx context.Context, op string, filter bson.M) (*models.PaymentTransaction, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	var tx models.PaymentTransaction
	if err := r.coll.FindOne(ctx, filter).Decode(&tx); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(op, "payment not found")
		}
		return nil, fmt.Errorf("payment query failed: %w", err)
	}
	return &tx, nil
}
