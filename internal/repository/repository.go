package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"strideiq/plan-engine/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	SetPlanGenerationEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error
}

// ActivityRepository is the read side of the activity history store. The
// engine only ever reads completed activities; writes belong to the
// ingestion pipeline, which owns its own collection access.
type ActivityRepository interface {
	GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Activity, error)
}

// TemplateRepository manages the versioned workout template registry.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.WorkoutTemplate) error
	GetByID(ctx context.Context, id string) (*domain.WorkoutTemplate, error)
	GetAll(ctx context.Context) ([]domain.WorkoutTemplate, error)
	Update(ctx context.Context, template *domain.WorkoutTemplate) error
	Delete(ctx context.Context, id string) error
}

// PlannedWorkoutRepository owns the generated calendar rows. Regeneration
// replaces an athlete's rows wholesale; there is no partial patch method
// on purpose.
type PlannedWorkoutRepository interface {
	ReplaceForAthlete(ctx context.Context, athleteID primitive.ObjectID, workouts []domain.PlannedWorkout) error
	GetByGenerationID(ctx context.Context, athleteID primitive.ObjectID, generationID string) ([]domain.PlannedWorkout, error)
	GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.PlannedWorkout, error)
}

// AuditRepository is append-only: selection audit events are immutable
// once written, so the interface exposes insert and read, nothing else.
type AuditRepository interface {
	InsertMany(ctx context.Context, events []domain.WorkoutSelectionAuditEvent) error
	GetByGenerationID(ctx context.Context, generationID string) ([]domain.WorkoutSelectionAuditEvent, error)
}

// TrainingPlanRepository manages the plan summary documents.
type TrainingPlanRepository interface {
	Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error)
	GetActiveByAthleteID(ctx context.Context, athleteID primitive.ObjectID) (*domain.TrainingPlan, error)
	DeactivateForAthlete(ctx context.Context, athleteID primitive.ObjectID) error
}
