package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/engine"
	"strideiq/plan-engine/internal/repository"
	"strideiq/plan-engine/internal/storage"
)

// --- Error Definitions ---
var (
	ErrGenerationDisabled = errors.New("plan generation is not enabled for this athlete")
	ErrAthleteNotFound    = errors.New("athlete not found")
	ErrNoActivePlan       = errors.New("no active plan for this athlete")
)

// GenerationRequest is the API-facing shape of one generation call.
type GenerationRequest struct {
	Race             domain.GoalRace
	TuneUps          []domain.TuneUpRace
	StartDate        time.Time // zero = start next Monday
	TimeAvailableMin int
	Facilities       []string
}

// GenerationResult bundles what the handler returns to the client.
type GenerationResult struct {
	Plan     domain.TrainingPlan
	Workouts []domain.PlannedWorkout
}

// --- Service Interface ---
type PlanService interface {
	Generate(ctx context.Context, athleteID primitive.ObjectID, req GenerationRequest) (*GenerationResult, error)
	GetActivePlan(ctx context.Context, athleteID primitive.ObjectID) (*GenerationResult, error)
	ExportURL(ctx context.Context, athleteID primitive.ObjectID) (string, error)
	GetAuditTrail(ctx context.Context, generationID string) ([]domain.WorkoutSelectionAuditEvent, error)
}

// --- Service Implementation ---

// planService orchestrates one plan generation: it takes the activity
// history and registry snapshots, runs the (pure) engine, and persists
// the result. The engine does no I/O; everything with a context on it
// lives here.
//
// Concurrent generations for the same athlete are NOT serialized here;
// the route layer holds a per-athlete lock around Generate.
type planService struct {
	userRepo     repository.UserRepository
	activityRepo repository.ActivityRepository
	templateRepo repository.TemplateRepository
	workoutRepo  repository.PlannedWorkoutRepository
	auditRepo    repository.AuditRepository
	planRepo     repository.TrainingPlanRepository
	archive      storage.PlanArchive
	engineCfg    config.EngineConfig
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	userRepo repository.UserRepository,
	activityRepo repository.ActivityRepository,
	templateRepo repository.TemplateRepository,
	workoutRepo repository.PlannedWorkoutRepository,
	auditRepo repository.AuditRepository,
	planRepo repository.TrainingPlanRepository,
	archive storage.PlanArchive,
	engineCfg config.EngineConfig,
) PlanService {
	return &planService{
		userRepo:     userRepo,
		activityRepo: activityRepo,
		templateRepo: templateRepo,
		workoutRepo:  workoutRepo,
		auditRepo:    auditRepo,
		planRepo:     planRepo,
		archive:      archive,
		engineCfg:    engineCfg,
	}
}

// Generate runs one full plan generation for the athlete. Input validation
// happens up front (engine.PlanRequest.Validate); past that point the
// engine degrades instead of failing, so any error below is persistence.
func (s *planService) Generate(ctx context.Context, athleteID primitive.ObjectID, req GenerationRequest) (*GenerationResult, error) {
	user, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}
	if !user.PlanGenerationEnabled {
		return nil, ErrGenerationDisabled
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = nextMonday(time.Now().UTC())
	}

	// Snapshot both inputs once; the engine never re-reads.
	history, err := s.activityRepo.GetByAthleteID(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	registry, err := s.templateRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	registry = usableTemplates(registry)

	generationID := uuid.NewString()
	generated, err := engine.GeneratePlan(history, registry, engine.PlanRequest{
		AthleteID:        athleteID,
		Race:             req.Race,
		TuneUps:          req.TuneUps,
		StartDate:        startDate,
		TimeAvailableMin: req.TimeAvailableMin,
		Facilities:       req.Facilities,
	}, generationID, s.engineCfg)
	if err != nil {
		return nil, err
	}

	log.Printf("Generated plan %s for athlete %s: %d weeks, %d workouts, %d selections (data tier %s)",
		generationID, athleteID.Hex(), generated.Plan.Weeks, len(generated.Workouts), len(generated.Audits), generated.Bank.Data)

	// Persist: audit first (append-only, survives regardless), then the
	// wholesale calendar replace, then the summary swap.
	if err := s.auditRepo.InsertMany(ctx, generated.Audits); err != nil {
		return nil, err
	}
	if err := s.workoutRepo.ReplaceForAthlete(ctx, athleteID, generated.Workouts); err != nil {
		return nil, err
	}
	if err := s.planRepo.DeactivateForAthlete(ctx, athleteID); err != nil {
		return nil, err
	}
	if _, err := s.planRepo.Create(ctx, &generated.Plan); err != nil {
		return nil, err
	}

	// Archive the snapshot. Best effort: a plan without an export copy is
	// still a plan.
	if err := s.archiveSnapshot(ctx, athleteID, generationID, &generated); err != nil {
		log.Printf("WARN: Failed to archive plan snapshot %s: %v", generationID, err)
	}

	return &GenerationResult{Plan: generated.Plan, Workouts: generated.Workouts}, nil
}

// GetActivePlan returns the athlete's current plan and calendar.
func (s *planService) GetActivePlan(ctx context.Context, athleteID primitive.ObjectID) (*GenerationResult, error) {
	plan, err := s.planRepo.GetActiveByAthleteID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActivePlan
		}
		return nil, err
	}
	workouts, err := s.workoutRepo.GetByGenerationID(ctx, athleteID, plan.GenerationID)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{Plan: *plan, Workouts: workouts}, nil
}

// ExportURL returns a presigned download URL for the active plan's
// archived snapshot.
func (s *planService) ExportURL(ctx context.Context, athleteID primitive.ObjectID) (string, error) {
	plan, err := s.planRepo.GetActiveByAthleteID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoActivePlan
		}
		return "", err
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, snapshotKey(athleteID, plan.GenerationID), storage.DefaultPresignedURLExpiry)
}

// GetAuditTrail returns the selection audit events recorded for one
// generation, in insertion order. Coach tooling uses this to answer "why
// did the engine pick that workout".
func (s *planService) GetAuditTrail(ctx context.Context, generationID string) ([]domain.WorkoutSelectionAuditEvent, error) {
	return s.auditRepo.GetByGenerationID(ctx, generationID)
}

func (s *planService) archiveSnapshot(ctx context.Context, athleteID primitive.ObjectID, generationID string, generated *engine.GeneratedPlan) error {
	snapshot := struct {
		Plan     domain.TrainingPlan        `json:"plan"`
		Workouts []domain.PlannedWorkout    `json:"workouts"`
		Bank     domain.FitnessBank         `json:"fitnessBank"`
		Load     domain.TrainingLoadProfile `json:"loadProfile"`
	}{generated.Plan, generated.Workouts, generated.Bank, generated.Load}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.archive.PutSnapshot(ctx, snapshotKey(athleteID, generationID), body, "application/json")
}

// usableTemplates re-validates the registry snapshot before it reaches the
// engine. The write path validates too, but the registry is externally
// curated and documents can land in the collection without passing through
// it; a malformed document costs one template, not the whole generation.
func usableTemplates(registry []domain.WorkoutTemplate) []domain.WorkoutTemplate {
	usable := make([]domain.WorkoutTemplate, 0, len(registry))
	for i := range registry {
		if err := validateTemplate(&registry[i]); err != nil {
			log.Printf("WARN: Skipping malformed workout template %q: %v", registry[i].ID, err)
			continue
		}
		usable = append(usable, registry[i])
	}
	return usable
}

func snapshotKey(athleteID primitive.ObjectID, generationID string) string {
	return fmt.Sprintf("plans/%s/%s.json", athleteID.Hex(), generationID)
}

// nextMonday returns the Monday after the given day (or the day itself if
// it is a Monday), at midnight UTC.
func nextMonday(t time.Time) time.Time {
	t = t.Truncate(24 * time.Hour)
	offset := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset)
}
