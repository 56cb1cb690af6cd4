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

// MongoResourceRepo stores transport resources in the "resources" collection.
type MongoResourceRepo struct {
	coll *mongo.Collection
}

func NewResourceRepo(db *mongo.Database) *MongoResourceRepo {
	return &MongoResourceRepo{coll: db.Collection(resourcesCollection)}
}

func (r *MongoResourceRepo) Create(ctx context.Context, resource *models.Resource) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, resource); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyHandled("mongo.Resources.Create", "resource %s exists", resource.ID)
		}
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *MongoResourceRepo) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	var resource models.Resource
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&resource); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("mongo.Resources.GetByID", "resource %s", id)
		}
		return nil, fmt.Errorf("failed to fetch resource with id %s: %w", id, err)
	}
	return &resource, nil
}

func (r *MongoResourceRepo) UpdateLocation(ctx context.Context, id string, location models.GeoPoint) error {
	return r.setFields(ctx, "mongo.Resources.UpdateLocation", id, bson.M{"location": location})
}

// NearestAvailable runs $geoNear over bookable resources, nearest first.
func (r *MongoResourceRepo) NearestAvailable(ctx context.Context, point models.GeoPoint, radiusMeters float64, limit int) ([]models.ResourceDistance, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: point.Coordinates},
			}},
			{Key: "distanceField", Value: "distanceMeters"},
			{Key: "spherical", Value: true},
			{Key: "maxDistance", Value: radiusMeters},
			{Key: "query", Value: bson.M{"available": true, "verified": true}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "distanceMeters", Value: 1},
			{Key: "id", Value: 1},
		}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("geoNear query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.ResourceDistance
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}
	return out, nil
}

// SwapAvailable flips the flag only when it still holds the expected value.
func (r *MongoResourceRepo) SwapAvailable(ctx context.Context, id string, expected, next bool) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "available": expected}
	update := bson.M{"$set": bson.M{"available": next, "updatedAt": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to swap availability of %s: %w", id, err)
	}
	if result.MatchedCount == 1 {
		return true, nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return false, fmt.Errorf("failed to check resource %s: %w", id, err)
	}
	if n == 0 {
		return false, apperrors.NotFound("mongo.Resources.SwapAvailable", "resource %s", id)
	}
	return false, nil
}

func (r *MongoResourceRepo) SetAvailable(ctx context.Context, id string, available bool) error {
	return r.setFields(ctx, "mongo.Resources.SetAvailable", id, bson.M{"available": available})
}

func (r *MongoResourceRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.setFields(ctx, "mongo.Resources.SetVerified", id, bson.M{"verified": verified})
}

func (r *MongoResourceRepo) CountAvailable(ctx context.Context) (int64, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, bson.M{"available": true, "verified": true})
	if err != nil {
		return 0, fmt.Errorf("failed to count available resources: %w", err)
	}
	return n, nil
}

func (r *MongoResourceRepo) setFields(ctx context.Context, op, id string, fields bson.M) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	fields["updatedAt"] = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update resource with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound(op, "resource %s", id)
	}
	return nil
}
