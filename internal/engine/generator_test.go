package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

func marathonRequest(weeks int) PlanRequest {
	return PlanRequest{
		AthleteID: primitive.NewObjectID(),
		Race:      raceInWeeks(weeks, domain.DistanceMarathon),
		StartDate: themeTestStart,
	}
}

func TestPlanRequestValidation(t *testing.T) {
	req := marathonRequest(16)
	assert.NoError(t, req.Validate())

	bad := req
	bad.Race.Distance = "50k"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownDistance)

	bad = req
	bad.Race.Date = themeTestStart.AddDate(0, 0, -1)
	assert.ErrorIs(t, bad.Validate(), ErrRaceNotInFuture)

	bad = req
	bad.TuneUps = []domain.TuneUpRace{{Distance: domain.Distance10K, Date: req.Race.Date.AddDate(0, 0, 7)}}
	assert.ErrorIs(t, bad.Validate(), ErrTuneUpOutOfRange)
}

func TestGeneratePlanEndToEnd(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	history := weeklyPattern(themeTestStart, 30, 14, 6)
	req := marathonRequest(16)

	plan, err := GeneratePlan(history, testRegistry(), req, "gen-e2e", cfg)
	require.NoError(t, err)

	assert.Equal(t, 16, plan.Plan.Weeks)
	assert.Equal(t, "gen-e2e", plan.Plan.GenerationID)
	assert.True(t, plan.Plan.IsActive)
	assert.Positive(t, plan.Plan.ProjectedMiles)

	// Every day of the plan exists, rest days included.
	require.Len(t, plan.Workouts, 16*7)
	for _, w := range plan.Workouts {
		assert.Equal(t, req.AthleteID, w.AthleteID)
		assert.Equal(t, "gen-e2e", w.GenerationID)
		assert.False(t, w.Date.Before(req.StartDate))
	}

	// Exactly one audit event per quality session.
	quality := 0
	for _, w := range plan.Workouts {
		if w.TemplateID != "" {
			quality++
		}
	}
	assert.Equal(t, quality, len(plan.Audits))
	assert.Greater(t, quality, 0)

	// The goal race lands in the final week, on its actual date.
	var raceDay *domain.PlannedWorkout
	for i, w := range plan.Workouts {
		if w.WorkoutType == domain.WorkoutTypeRace {
			require.Nil(t, raceDay, "exactly one race day")
			raceDay = &plan.Workouts[i]
		}
	}
	require.NotNil(t, raceDay)
	assert.Equal(t, 16, raceDay.WeekNumber)
	assert.Equal(t, req.Race.Date.Weekday(), raceDay.Date.Weekday())
}

func TestGeneratePlanIsDeterministic(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	history := weeklyPattern(themeTestStart, 30, 14, 6)
	req := marathonRequest(12)

	plan1, err1 := GeneratePlan(history, testRegistry(), req, "gen-det", cfg)
	plan2, err2 := GeneratePlan(history, testRegistry(), req, "gen-det", cfg)
	require.NoError(t, err1)
	require.NoError(t, err2)

	assert.Equal(t, plan1.Plan, plan2.Plan)
	assert.Equal(t, plan1.Workouts, plan2.Workouts)
	assert.Equal(t, plan1.Audits, plan2.Audits, "audit payloads must be identical run to run")
}

func TestGeneratePlanWithoutRegistryStillProducesAPlan(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	history := weeklyPattern(themeTestStart, 20, 12, 5)

	plan, err := GeneratePlan(history, nil, marathonRequest(12), "gen-noreg", cfg)
	require.NoError(t, err)

	assert.Empty(t, plan.Audits)
	assert.Len(t, plan.Workouts, 12*7)
	for _, w := range plan.Workouts {
		assert.Empty(t, w.TemplateID)
	}
}

func TestGeneratePlanWithNoHistoryUsesConservativeDefaults(t *testing.T) {
	cfg := config.DefaultEngineConfig()

	plan, err := GeneratePlan(nil, testRegistry(), marathonRequest(16), "gen-fresh", cfg)
	require.NoError(t, err)

	assert.Equal(t, domain.DataDefaulted, plan.Plan.Confidence)
	assert.NotEmpty(t, plan.Plan.Notes)

	// Starting from nothing, the jump cap keeps every long run modest.
	for _, w := range plan.Workouts {
		if w.WorkoutType == domain.WorkoutTypeLongRun || w.WorkoutType == domain.WorkoutTypeMarathonPace {
			assert.LessOrEqual(t, w.TargetMiles, longRunCap(domain.DistanceMarathon))
		}
	}
}

func TestGeneratePlanPlacesSessionsOnHabitualDays(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	history := weeklyPattern(themeTestStart, 30, 14, 6) // Sunday long runs, Wednesday quality

	plan, err := GeneratePlan(history, testRegistry(), marathonRequest(16), "gen-days", cfg)
	require.NoError(t, err)

	for _, w := range plan.Workouts {
		switch {
		case w.WorkoutType == domain.WorkoutTypeLongRun || w.WorkoutType == domain.WorkoutTypeMarathonPace:
			assert.Equal(t, time.Sunday, w.Date.Weekday(), "week %d", w.WeekNumber)
		case w.TemplateID != "":
			assert.Equal(t, time.Wednesday, w.Date.Weekday(), "week %d", w.WeekNumber)
		}
	}
}

func TestGeneratePlanConstrainedAthleteGetsNotesAndRebuild(t *testing.T) {
	cfg := config.DefaultEngineConfig()

	// Injury-shaped history: solid base, long hole, thin comeback.
	history := weeklyPattern(themeTestStart.AddDate(0, 0, -100), 30, 14, 6)
	history = append(history,
		domain.Activity{Date: themeTestStart.AddDate(0, 0, -8), WorkoutType: domain.WorkoutTypeEasy, DistanceMiles: 3, DurationMin: 30},
	)

	plan, err := GeneratePlan(history, testRegistry(), marathonRequest(16), "gen-injury", cfg)
	require.NoError(t, err)

	assert.Equal(t, domain.ConstraintInjury, plan.Bank.Constraint)
	assert.NotEmpty(t, plan.Plan.Notes)
	assert.Equal(t, "rebuild", plan.Workouts[0].Theme.Phase())
}
