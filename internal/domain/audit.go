package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SelectionMode records which path of the template selector produced the
// decision.
type SelectionMode string

const (
	SelectionNormal   SelectionMode = "normal"
	SelectionFallback SelectionMode = "fallback"
)

// Names of the hard filters, used as keys of FiltersApplied.
const (
	FilterPhase      = "phase_compatibility"
	FilterMinTime    = "min_time_min"
	FilterFacilities = "facilities"
	FilterDontFollow = "dont_follow"
)

// WorkoutSelectionAuditEvent is the append-only record of one template
// selection decision. Rows are immutable once written: there is no update
// path anywhere in the codebase, and the repository only exposes insert
// and read.
type WorkoutSelectionAuditEvent struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID    primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	GenerationID string             `bson:"generationId" json:"generationId"` // uuid of the plan generation run
	Trigger      string             `bson:"trigger" json:"trigger"`           // e.g. "plan_generation"
	Phase        string             `bson:"phase" json:"phase"`
	WeekNumber   int                `bson:"weekNumber" json:"weekNumber"`
	WeekInPhase  int                `bson:"weekInPhase" json:"weekInPhase"`

	// Rejection count per hard filter, keyed by the Filter* constants.
	FiltersApplied map[string]int `bson:"filtersApplied" json:"filtersApplied"`

	CandidatesConsidered int `bson:"candidatesConsidered" json:"candidatesConsidered"`
	CandidatesSurviving  int `bson:"candidatesSurviving" json:"candidatesSurviving"`

	SelectedTemplateID string        `bson:"selectedTemplateId" json:"selectedTemplateId"`
	ProgressionStepKey string        `bson:"progressionStepKey" json:"progressionStepKey"`
	StepIndex          int           `bson:"stepIndex" json:"stepIndex"`
	Mode               SelectionMode `bson:"mode" json:"mode"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
