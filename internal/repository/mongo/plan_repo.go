package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/repository"
)

const planCollectionName = "training_plans"

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository.
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingPlanRepository creates a new TrainingPlan repository backed by MongoDB.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan summary document.
func (r *mongoTrainingPlanRepository) Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	if plan.AthleteID == primitive.NilObjectID || plan.GenerationID == "" {
		return primitive.NilObjectID, errors.New("plan athlete ID and generation ID are required")
	}

	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetActiveByAthleteID retrieves the athlete's currently active plan.
func (r *mongoTrainingPlanRepository) GetActiveByAthleteID(ctx context.Context, athleteID primitive.ObjectID) (*domain.TrainingPlan, error) {
	var plan domain.TrainingPlan
	filter := bson.M{"athleteId": athleteID, "isActive": true}

	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// DeactivateForAthlete retires the athlete's active plans. Called right
// before a regenerated plan is written; old summaries stay around for
// history, unlike the calendar rows which are replaced wholesale.
func (r *mongoTrainingPlanRepository) DeactivateForAthlete(ctx context.Context, athleteID primitive.ObjectID) error {
	filter := bson.M{"athleteId": athleteID, "isActive": true}
	update := bson.M{
		"$set": bson.M{
			"isActive":  false,
			"updatedAt": time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// EnsureTrainingPlanIndexes creates necessary indexes for the training_plans collection.
func EnsureTrainingPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
