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

const auditCollectionName = "workout_selection_audit"

// mongoAuditRepository implements repository.AuditRepository. Deliberately
// append-only: audit rows are never updated or deleted, even when the plan
// they belong to is regenerated away.
type mongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository creates a new audit event repository backed by MongoDB.
func NewMongoAuditRepository(db *mongo.Database) repository.AuditRepository {
	return &mongoAuditRepository{
		collection: db.Collection(auditCollectionName),
	}
}

// InsertMany appends a batch of selection audit events. The engine leaves
// timestamps zero (it has no clock); they are stamped here at write time.
func (r *mongoAuditRepository) InsertMany(ctx context.Context, events []domain.WorkoutSelectionAuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(events))
	for i := range events {
		events[i].ID = primitive.NewObjectID()
		events[i].CreatedAt = now
		docs[i] = events[i]
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetByGenerationID retrieves the audit trail of one generation in week order.
func (r *mongoAuditRepository) GetByGenerationID(ctx context.Context, generationID string) ([]domain.WorkoutSelectionAuditEvent, error) {
	var events []domain.WorkoutSelectionAuditEvent
	filter := bson.M{"generationId": generationID}

	findOptions := options.Find().SetSort(bson.D{{Key: "weekNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}

	return events, nil
}

// EnsureAuditIndexes creates necessary indexes for the audit collection.
func EnsureAuditIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "generationId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
