package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"strideiq/plan-engine/internal/domain"
)

func steps(keys ...string) domain.ProgressionLogic {
	p := domain.ProgressionLogic{Type: domain.ProgressionTypeSteps}
	for _, k := range keys {
		p.Steps = append(p.Steps, domain.ProgressionStep{Key: k, Structure: k + " structure"})
	}
	return p
}

func testRegistry() []domain.WorkoutTemplate {
	return []domain.WorkoutTemplate{
		{
			ID:                 "thr_cruise_intervals",
			Name:               "Cruise Intervals",
			PhaseCompatibility: []string{"build", "peak"},
			Progression:        steps("3x1mi", "4x1mi", "5x1mi"),
			Constraints:        domain.TemplateConstraints{MinTimeMin: 60},
		},
		{
			ID:                 "thr_tempo_run",
			Name:               "Tempo Run",
			PhaseCompatibility: []string{"build", "peak", "taper"},
			Progression:        steps("20min", "30min", "40min"),
			Constraints:        domain.TemplateConstraints{MinTimeMin: 45},
		},
		{
			ID:                 "int_track_400s",
			Name:               "Track 400s",
			PhaseCompatibility: []string{"build", "peak"},
			Progression:        steps("8x400", "10x400", "12x400"),
			Constraints:        domain.TemplateConstraints{MinTimeMin: 50, Requires: []string{"track"}},
			DontFollow:         []string{"thr_cruise_intervals"},
		},
		{
			ID:                 "rec_fartlek",
			Name:               "Light Fartlek",
			PhaseCompatibility: []string{"recovery", "rebuild", "tune_up"},
			Progression:        steps("6x1min"),
		},
	}
}

func buildInput() SelectionInput {
	return SelectionInput{
		AthleteID:    primitive.NewObjectID(),
		GenerationID: "gen-1",
		Trigger:      "plan_generation",
		Phase:        "build",
		WeekNumber:   3,
		WeekInPhase:  3,
		PhaseWeeks:   6,
		Facilities:   []string{"track"},
	}
}

func TestSelectTemplateIsDeterministic(t *testing.T) {
	in := buildInput()
	in.RecentTemplateIDs = []string{"thr_tempo_run"}

	sel1, audit1, err1 := SelectTemplate(testRegistry(), in)
	sel2, audit2, err2 := SelectTemplate(testRegistry(), in)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, sel1, sel2)
	assert.Equal(t, audit1, audit2, "identical inputs must produce byte-identical audit payloads")
}

func TestEmptyRegistryIsTheOnlyError(t *testing.T) {
	_, _, err := SelectTemplate(nil, buildInput())
	assert.ErrorIs(t, err, ErrEmptyRegistry)
}

func TestPhaseFilterAndCounts(t *testing.T) {
	in := buildInput()
	in.Phase = "recovery"

	sel, audit, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)

	assert.Equal(t, "rec_fartlek", sel.Template.ID)
	assert.Equal(t, domain.SelectionNormal, sel.Mode)
	assert.Equal(t, 3, audit.FiltersApplied[domain.FilterPhase])
	assert.Equal(t, 4, audit.CandidatesConsidered)
	assert.Equal(t, 1, audit.CandidatesSurviving)
}

func TestMinTimeFilterRecordsRejections(t *testing.T) {
	// 50 minutes available: the 60-minute cruise intervals drop out, the
	// audit trail says exactly why.
	in := buildInput()
	in.TimeAvailableMin = 50

	sel, audit, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)

	assert.NotEqual(t, "thr_cruise_intervals", sel.Template.ID)
	assert.Equal(t, 1, audit.FiltersApplied[domain.FilterMinTime])
	assert.Equal(t, domain.SelectionNormal, audit.Mode)
}

func TestZeroTimeBudgetMeansNoTimeFilter(t *testing.T) {
	in := buildInput()
	in.TimeAvailableMin = 0

	_, audit, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)
	assert.Zero(t, audit.FiltersApplied[domain.FilterMinTime])
}

func TestFacilitiesFilter(t *testing.T) {
	in := buildInput()
	in.Facilities = nil // no track access

	sel, audit, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)

	assert.NotEqual(t, "int_track_400s", sel.Template.ID)
	assert.Equal(t, 1, audit.FiltersApplied[domain.FilterFacilities])
}

func TestDontFollowIsAsymmetric(t *testing.T) {
	// int_track_400s lists thr_cruise_intervals in dont_follow: cruise
	// intervals may not come right after the 400s. The reverse order is
	// fine, because only the previous template's list is consulted.
	in := buildInput()

	in.RecentTemplateIDs = []string{"int_track_400s"}
	sel, audit, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, audit.FiltersApplied[domain.FilterDontFollow])
	assert.NotEqual(t, "thr_cruise_intervals", sel.Template.ID)

	in.RecentTemplateIDs = []string{"thr_cruise_intervals"}
	sel, audit, err = SelectTemplate(testRegistry(), in)
	require.NoError(t, err)
	assert.Zero(t, audit.FiltersApplied[domain.FilterDontFollow])
	assert.Equal(t, "int_track_400s", sel.Template.ID) // its own list does not bar it
}

func TestSoftNoRepeatPreference(t *testing.T) {
	in := buildInput()
	in.RecentTemplateIDs = []string{"int_track_400s"}

	sel, _, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)
	assert.NotEqual(t, "int_track_400s", sel.Template.ID)
}

func TestRepeatAllowedWhenOnlySurvivor(t *testing.T) {
	registry := []domain.WorkoutTemplate{
		{
			ID:                 "only_one",
			Name:               "The Only Workout",
			PhaseCompatibility: []string{"build"},
			Progression:        steps("a", "b"),
		},
	}
	in := buildInput()
	in.Facilities = nil
	in.RecentTemplateIDs = []string{"only_one"}

	sel, audit, err := SelectTemplate(registry, in)
	require.NoError(t, err)
	assert.Equal(t, "only_one", sel.Template.ID)
	assert.Equal(t, domain.SelectionNormal, audit.Mode)
}

func TestFallbackRelaxesAllButPhase(t *testing.T) {
	// Starve every build template: tiny time budget and no facilities.
	in := buildInput()
	in.TimeAvailableMin = 10
	in.Facilities = nil

	sel, audit, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)

	assert.Equal(t, domain.SelectionFallback, audit.Mode)
	assert.Equal(t, domain.SelectionFallback, sel.Mode)
	assert.True(t, sel.Template.CompatibleWith("build"), "fallback must stay phase-compatible when possible")
	assert.Equal(t, 3, audit.CandidatesSurviving, "all three build-compatible templates survive the relaxation")
}

func TestFallbackDeterminism(t *testing.T) {
	in := buildInput()
	in.TimeAvailableMin = 10
	in.Facilities = nil

	sel1, audit1, _ := SelectTemplate(testRegistry(), in)
	sel2, audit2, _ := SelectTemplate(testRegistry(), in)
	assert.Equal(t, sel1, sel2)
	assert.Equal(t, audit1, audit2)
}

func TestSelectionStableAcrossRegistryOrder(t *testing.T) {
	in := buildInput()

	reversed := testRegistry()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	sel1, _, err1 := SelectTemplate(testRegistry(), in)
	sel2, _, err2 := SelectTemplate(reversed, in)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, sel1.Template.ID, sel2.Template.ID)
}

func TestProgressionStepMappingIsMonotonicAndCeiling(t *testing.T) {
	// 3 steps over 6 weeks: weeks 1-2 step 0, 3-4 step 1, 5-6 step 2.
	expected := []int{0, 0, 1, 1, 2, 2}
	for week := 1; week <= 6; week++ {
		assert.Equal(t, expected[week-1], progressionStepIndex(3, week, 6), "week %d", week)
	}

	// Monotonic for any shape.
	for steps := 1; steps <= 6; steps++ {
		for phaseWeeks := 1; phaseWeeks <= 12; phaseWeeks++ {
			prev := 0
			for week := 1; week <= phaseWeeks; week++ {
				idx := progressionStepIndex(steps, week, phaseWeeks)
				assert.GreaterOrEqual(t, idx, prev)
				assert.Less(t, idx, steps)
				prev = idx
			}
			// The final week always lands on the last step.
			assert.Equal(t, steps-1, progressionStepIndex(steps, phaseWeeks, phaseWeeks))
		}
	}
}

func TestAuditEventCarriesSelectionContext(t *testing.T) {
	in := buildInput()
	sel, audit, err := SelectTemplate(testRegistry(), in)
	require.NoError(t, err)

	assert.Equal(t, in.AthleteID, audit.AthleteID)
	assert.Equal(t, in.GenerationID, audit.GenerationID)
	assert.Equal(t, in.Trigger, audit.Trigger)
	assert.Equal(t, in.Phase, audit.Phase)
	assert.Equal(t, in.WeekNumber, audit.WeekNumber)
	assert.Equal(t, sel.Template.ID, audit.SelectedTemplateID)
	assert.Equal(t, sel.Step.Key, audit.ProgressionStepKey)
	assert.Equal(t, sel.StepIndex, audit.StepIndex)
	assert.True(t, audit.CreatedAt.IsZero(), "the selector never stamps timestamps; the writer does")
}

func TestZeroStepTemplateSelectsWithoutAStep(t *testing.T) {
	// A registry document with an empty progression should never reach the
	// selector, but a malformed one must degrade, not panic.
	registry := []domain.WorkoutTemplate{
		{
			ID:                 "bad_no_steps",
			Name:               "Malformed",
			PhaseCompatibility: []string{"build"},
		},
	}

	sel, audit, err := SelectTemplate(registry, buildInput())
	require.NoError(t, err)

	assert.Equal(t, "bad_no_steps", sel.Template.ID)
	assert.Equal(t, domain.ProgressionStep{}, sel.Step)
	assert.Zero(t, sel.StepIndex)
	assert.Empty(t, audit.ProgressionStepKey)
}
