package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/repository"
)

const templateCollectionName = "workout_templates"

// mongoTemplateRepository implements repository.TemplateRepository.
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new WorkoutTemplate repository backed by MongoDB.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// Create inserts a new template. The progression variant must already be
// validated by the service layer; this is just a sanity net.
func (r *mongoTemplateRepository) Create(ctx context.Context, template *domain.WorkoutTemplate) error {
	if template.ID == "" || template.Name == "" {
		return errors.New("template id and name are required")
	}
	if err := template.Progression.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	template.Version = 1
	template.CreatedAt = now
	template.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, template)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves one template by its registry id.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id string) (*domain.WorkoutTemplate, error) {
	var template domain.WorkoutTemplate
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// GetAll returns the whole registry, id-ordered. A plan generation takes
// this snapshot once at invocation start and never re-reads.
func (r *mongoTemplateRepository) GetAll(ctx context.Context) ([]domain.WorkoutTemplate, error) {
	var templates []domain.WorkoutTemplate

	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}

	return templates, nil
}

// Update modifies an existing template and bumps its version.
func (r *mongoTemplateRepository) Update(ctx context.Context, template *domain.WorkoutTemplate) error {
	if template.ID == "" {
		return errors.New("template id is required for update")
	}
	if err := template.Progression.Validate(); err != nil {
		return err
	}

	filter := bson.M{"_id": template.ID}
	update := bson.M{
		"$set": bson.M{
			"name":               template.Name,
			"intensityTier":      template.IntensityTier,
			"phaseCompatibility": template.PhaseCompatibility,
			"progression":        template.Progression,
			"varianceTags":       template.VarianceTags,
			"constraints":        template.Constraints,
			"dontFollow":         template.DontFollow,
			"updatedAt":          time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a template from the registry.
func (r *mongoTemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
