package engine

import (
	"errors"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"strideiq/plan-engine/internal/domain"
)

// ErrEmptyRegistry is the only way template selection can fail: an empty
// registry is a deployment problem, not a constraint problem. With at
// least one template on file the selector always returns a selection.
var ErrEmptyRegistry = errors.New("workout template registry is empty")

// SelectionInput is everything one selection decision depends on. The
// recent-selection history is caller-supplied and generation-scoped by
// design: the selector holds no state between calls.
type SelectionInput struct {
	AthleteID    primitive.ObjectID
	GenerationID string
	Trigger      string // e.g. "plan_generation"

	Phase       string
	WeekNumber  int
	WeekInPhase int
	PhaseWeeks  int

	TimeAvailableMin int      // 0 = athlete gave no time budget
	Facilities       []string // facility tags the athlete has access to

	// Previously selected template ids for this generation, oldest first.
	RecentTemplateIDs []string
}

// Selection is the selector's decision.
type Selection struct {
	Template  domain.WorkoutTemplate
	Step      domain.ProgressionStep
	StepIndex int
	Mode      domain.SelectionMode
}

// SelectTemplate picks the quality workout template for one week. The hard
// filters run in a fixed order, each recording how many candidates it
// rejected; survivors are narrowed by the soft no-repeat preference and a
// stable lexicographic id tie-break. If the hard filters eliminate every
// candidate, all filters except phase compatibility are relaxed and the
// first survivor (or, failing that, any template) is taken. Exactly one
// audit event describes the decision either way.
//
// The function is pure: identical inputs produce an identical selection
// and an identical audit payload. Timestamps are left to the writer.
func SelectTemplate(registry []domain.WorkoutTemplate, in SelectionInput) (Selection, domain.WorkoutSelectionAuditEvent, error) {
	if len(registry) == 0 {
		return Selection{}, domain.WorkoutSelectionAuditEvent{}, ErrEmptyRegistry
	}

	var prevID string
	if len(in.RecentTemplateIDs) > 0 {
		prevID = in.RecentTemplateIDs[len(in.RecentTemplateIDs)-1]
	}
	prevTemplate := findTemplate(registry, prevID)

	filters := map[string]int{
		domain.FilterPhase:      0,
		domain.FilterMinTime:    0,
		domain.FilterFacilities: 0,
		domain.FilterDontFollow: 0,
	}

	var survivors []domain.WorkoutTemplate
	for _, t := range registry {
		switch {
		case !t.CompatibleWith(in.Phase):
			filters[domain.FilterPhase]++
		case in.TimeAvailableMin > 0 && t.Constraints.MinTimeMin > in.TimeAvailableMin:
			filters[domain.FilterMinTime]++
		case !hasFacilities(t, in.Facilities):
			filters[domain.FilterFacilities]++
		case prevTemplate != nil && prevTemplate.Forbids(t.ID):
			// Asymmetric on purpose: only the previous template's
			// dont_follow list is consulted, never the candidate's.
			filters[domain.FilterDontFollow]++
		default:
			survivors = append(survivors, t)
		}
	}

	mode := domain.SelectionNormal
	if len(survivors) == 0 {
		// Constraint exhaustion is not an error. Relax everything except
		// phase compatibility.
		mode = domain.SelectionFallback
		for _, t := range registry {
			if t.CompatibleWith(in.Phase) {
				survivors = append(survivors, t)
			}
		}
		if len(survivors) == 0 {
			// Not even a phase match; any template beats no workout.
			survivors = append(survivors, registry...)
		}
	}

	chosen := pickSurvivor(survivors, prevID)
	stepIdx := progressionStepIndex(len(chosen.Progression.Steps), in.WeekInPhase, in.PhaseWeeks)

	sel := Selection{
		Template:  chosen,
		StepIndex: stepIdx,
		Mode:      mode,
	}
	// A template that slipped past registry validation with no steps is
	// selected without a progression step rather than halting generation.
	if stepIdx < len(chosen.Progression.Steps) {
		sel.Step = chosen.Progression.Steps[stepIdx]
	}

	event := domain.WorkoutSelectionAuditEvent{
		AthleteID:            in.AthleteID,
		GenerationID:         in.GenerationID,
		Trigger:              in.Trigger,
		Phase:                in.Phase,
		WeekNumber:           in.WeekNumber,
		WeekInPhase:          in.WeekInPhase,
		FiltersApplied:       filters,
		CandidatesConsidered: len(registry),
		CandidatesSurviving:  len(survivors),
		SelectedTemplateID:   chosen.ID,
		ProgressionStepKey:   sel.Step.Key,
		StepIndex:            stepIdx,
		Mode:                 mode,
	}
	return sel, event, nil
}

func findTemplate(registry []domain.WorkoutTemplate, id string) *domain.WorkoutTemplate {
	if id == "" {
		return nil
	}
	for i := range registry {
		if registry[i].ID == id {
			return &registry[i]
		}
	}
	return nil
}

func hasFacilities(t domain.WorkoutTemplate, available []string) bool {
	for _, req := range t.Constraints.Requires {
		found := false
		for _, have := range available {
			if have == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// pickSurvivor applies the soft no-repeat preference and breaks remaining
// ties by lexicographic template id, which makes the choice stable across
// runs and registry orderings.
func pickSurvivor(survivors []domain.WorkoutTemplate, prevID string) domain.WorkoutTemplate {
	sort.Slice(survivors, func(i, j int) bool { return survivors[i].ID < survivors[j].ID })

	if prevID != "" && len(survivors) > 1 {
		for _, t := range survivors {
			if t.ID != prevID {
				return t
			}
		}
	}
	return survivors[0]
}

// progressionStepIndex maps week-in-phase proportionally onto the ordered
// step list with ceiling rounding. Monotonic: a later week never maps to
// an earlier step for the same phase length.
func progressionStepIndex(steps, weekInPhase, phaseWeeks int) int {
	if steps <= 1 {
		return 0
	}
	if phaseWeeks < 1 {
		phaseWeeks = 1
	}
	if weekInPhase < 1 {
		weekInPhase = 1
	}
	if weekInPhase > phaseWeeks {
		weekInPhase = phaseWeeks
	}
	ratio := float64(weekInPhase) / float64(phaseWeeks)
	idx := int(math.Ceil(ratio*float64(steps))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= steps {
		idx = steps - 1
	}
	return idx
}
