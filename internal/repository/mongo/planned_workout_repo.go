package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/repository"
)

const plannedWorkoutCollectionName = "planned_workouts"

// mongoPlannedWorkoutRepository implements repository.PlannedWorkoutRepository.
type mongoPlannedWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoPlannedWorkoutRepository creates a new PlannedWorkout repository backed by MongoDB.
func NewMongoPlannedWorkoutRepository(db *mongo.Database) repository.PlannedWorkoutRepository {
	return &mongoPlannedWorkoutRepository{
		collection: db.Collection(plannedWorkoutCollectionName),
	}
}

// ReplaceForAthlete swaps out the athlete's whole calendar in one shot:
// delete everything, insert the new rows. Regeneration is wholesale by
// contract; nothing ever patches individual rows. The caller serializes
// concurrent generations per athlete, so delete+insert is safe here.
func (r *mongoPlannedWorkoutRepository) ReplaceForAthlete(ctx context.Context, athleteID primitive.ObjectID, workouts []domain.PlannedWorkout) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"athleteId": athleteID}); err != nil {
		return err
	}
	if len(workouts) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(workouts))
	for i := range workouts {
		workouts[i].ID = primitive.NewObjectID()
		workouts[i].CreatedAt = now
		docs[i] = workouts[i]
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetByGenerationID retrieves the calendar rows of one generation, date-ordered.
func (r *mongoPlannedWorkoutRepository) GetByGenerationID(ctx context.Context, athleteID primitive.ObjectID, generationID string) ([]domain.PlannedWorkout, error) {
	return r.find(ctx, bson.M{"athleteId": athleteID, "generationId": generationID})
}

// GetByAthleteID retrieves the athlete's current calendar, date-ordered.
func (r *mongoPlannedWorkoutRepository) GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.PlannedWorkout, error) {
	return r.find(ctx, bson.M{"athleteId": athleteID})
}

func (r *mongoPlannedWorkoutRepository) find(ctx context.Context, filter bson.M) ([]domain.PlannedWorkout, error) {
	var workouts []domain.PlannedWorkout

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}

	return workouts, nil
}

// EnsurePlannedWorkoutIndexes creates necessary indexes for the planned_workouts collection.
func EnsurePlannedWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "generationId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
