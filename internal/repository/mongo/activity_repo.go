package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/repository"
)

const activityCollectionName = "activities"

// mongoActivityRepository implements repository.ActivityRepository. The
// engine only reads this collection; the sync pipeline that fills it lives
// in a separate service.
type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new Activity repository backed by MongoDB.
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &mongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

// GetByAthleteID retrieves the athlete's full activity history, oldest
// first. The engine expects the complete history: capability scanning and
// tau calibration both look years back.
func (r *mongoActivityRepository) GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Activity, error) {
	var activities []domain.Activity
	filter := bson.M{"athleteId": athleteID}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}

	return activities, nil
}

// EnsureActivityIndexes creates necessary indexes for the activities collection.
func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
