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

// MongoRequesterRepo stores requesters in the "requesters" collection.
type MongoRequesterRepo struct {
	coll *mongo.Collection
}

func NewRequesterRepo(db *mongo.Database) *MongoRequesterRepo {
	return &MongoRequesterRepo{coll: db.Collection(requestersCollection)}
}

func (r *MongoRequesterRepo) Create(ctx context.Context, requester *models.Requester) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, requester); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyHandled("mongo.Requesters.Create", "requester %s exists", requester.ID)
		}
		return fmt.Errorf("failed to create requester: %w", err)
	}
	return nil
}

func (r *MongoRequesterRepo) GetByID(ctx context.Context, id string) (*models.Requester, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	var requester models.Requester
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&requester); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("mongo.Requesters.GetByID", "requester %s", id)
		}
		return nil, fmt.Errorf("failed to fetch requester with id %s: %w", id, err)
	}
	return &requester, nil
}

func (r *MongoRequesterRepo) UpdateLocation(ctx context.Context, id string, location models.GeoPoint) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	update := bson.M{"$set": bson.M{"location": location, "updatedAt": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update requester with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("mongo.Requesters.UpdateLocation", "requester %s", id)
	}
	return nil
}
