package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaceTable holds the athlete's training paces in seconds per mile,
// derived from a single race-anchored fitness scalar (never from noisy
// training-run paces).
type PaceTable struct {
	EasySecPerMile       float64 `bson:"easy" json:"easy"`
	MarathonSecPerMile   float64 `bson:"marathon" json:"marathon"`
	ThresholdSecPerMile  float64 `bson:"threshold" json:"threshold"`
	IntervalSecPerMile   float64 `bson:"interval" json:"interval"`
	RepetitionSecPerMile float64 `bson:"repetition" json:"repetition"`
}

// PlannedWorkout is one day of the generated calendar. The engine creates
// these rows; the plan persistence layer owns them afterwards. A later
// generation replaces an athlete's rows wholesale, never patches them.
type PlannedWorkout struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID    primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	GenerationID string             `bson:"generationId" json:"generationId"`
	Date         time.Time          `bson:"date" json:"date"`
	WeekNumber   int                `bson:"weekNumber" json:"weekNumber"`
	Theme        WeekTheme          `bson:"theme" json:"theme"`

	WorkoutType       string  `bson:"workoutType" json:"workoutType"` // easy, long_run, quality, rest, race...
	TargetMiles       float64 `bson:"targetMiles,omitempty" json:"targetMiles,omitempty"`
	TargetDurationMin float64 `bson:"targetDurationMin,omitempty" json:"targetDurationMin,omitempty"`
	TargetPaceSecMile float64 `bson:"targetPaceSecMile,omitempty" json:"targetPaceSecMile,omitempty"`
	TemplateID        string  `bson:"templateId,omitempty" json:"templateId,omitempty"` // set for quality sessions
	Description       string  `bson:"description,omitempty" json:"description,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// TrainingPlan is the plan-level summary document created alongside the
// PlannedWorkout rows, consumed by the presentation layer.
type TrainingPlan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID    primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	GenerationID string             `bson:"generationId" json:"generationId"`
	Name         string             `bson:"name" json:"name"` // e.g. "Marathon build: 16 weeks"

	Race      GoalRace     `bson:"race" json:"race"`
	TuneUps   []TuneUpRace `bson:"tuneUps,omitempty" json:"tuneUps,omitempty"`
	StartDate time.Time    `bson:"startDate" json:"startDate"`
	Weeks     int          `bson:"weeks" json:"weeks"`

	ProjectedMiles float64   `bson:"projectedMiles" json:"projectedMiles"`
	ProjectedTSS   float64   `bson:"projectedTss" json:"projectedTss"`
	Paces          PaceTable `bson:"paces" json:"paces"`
	Confidence     DataTier  `bson:"confidence" json:"confidence"`
	Notes          []string  `bson:"notes,omitempty" json:"notes,omitempty"` // free-text personalization notes

	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
