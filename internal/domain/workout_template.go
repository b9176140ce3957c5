package domain

import (
	"errors"
	"time"
)

// ProgressionStep is one rung of a template's progression ladder.
type ProgressionStep struct {
	Key                 string `bson:"key" json:"key"`                 // e.g. "4x1mi", "5x1mi"
	Structure           string `bson:"structure" json:"structure"`     // machine-ish structure string
	DescriptionTemplate string `bson:"descriptionTemplate" json:"descriptionTemplate"`
}

// ProgressionLogic is the tagged variant behind the registry's
// progression_logic blob. It is validated once, when a template is written
// or loaded, never ad hoc at selection time. Currently the only supported
// type is "steps".
type ProgressionLogic struct {
	Type  string            `bson:"type" json:"type"`
	Steps []ProgressionStep `bson:"steps" json:"steps"`
}

const ProgressionTypeSteps = "steps"

var (
	ErrProgressionType  = errors.New("unsupported progression_logic type")
	ErrProgressionEmpty = errors.New("progression_logic has no steps")
	ErrProgressionStep  = errors.New("progression step missing key or structure")
)

// Validate checks the progression variant against its schema.
func (p ProgressionLogic) Validate() error {
	if p.Type != ProgressionTypeSteps {
		return ErrProgressionType
	}
	if len(p.Steps) == 0 {
		return ErrProgressionEmpty
	}
	for _, s := range p.Steps {
		if s.Key == "" || s.Structure == "" {
			return ErrProgressionStep
		}
	}
	return nil
}

// TemplateConstraints are the hard requirements a template places on the
// athlete's context.
type TemplateConstraints struct {
	MinTimeMin int      `bson:"minTimeMin,omitempty" json:"minTimeMin,omitempty"`
	Requires   []string `bson:"requires,omitempty" json:"requires,omitempty"` // facility tags, e.g. "track", "treadmill"
}

// WorkoutTemplate is one row of the versioned, externally curated quality
// workout registry. The string ID doubles as the stable lexicographic
// tie-break key for selection.
type WorkoutTemplate struct {
	ID                 string              `bson:"_id" json:"id"` // e.g. "thr_cruise_intervals"
	Name               string              `bson:"name" json:"name"`
	IntensityTier      string              `bson:"intensityTier" json:"intensityTier"` // e.g. "moderate", "hard"
	PhaseCompatibility []string            `bson:"phaseCompatibility" json:"phaseCompatibility"`
	Progression        ProgressionLogic    `bson:"progression" json:"progression"`
	VarianceTags       []string            `bson:"varianceTags,omitempty" json:"varianceTags,omitempty"`
	Constraints        TemplateConstraints `bson:"constraints" json:"constraints"`
	DontFollow         []string            `bson:"dontFollow,omitempty" json:"dontFollow,omitempty"`
	Version            int                 `bson:"version" json:"version"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CompatibleWith reports whether the template lists the given phase key.
func (t *WorkoutTemplate) CompatibleWith(phase string) bool {
	for _, p := range t.PhaseCompatibility {
		if p == phase {
			return true
		}
	}
	return false
}

// Forbids reports whether this template's dont_follow list names the
// given template id.
func (t *WorkoutTemplate) Forbids(otherID string) bool {
	for _, id := range t.DontFollow {
		if id == otherID {
			return true
		}
	}
	return false
}
