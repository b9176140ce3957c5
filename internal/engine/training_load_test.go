package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

// dailyHistory builds `days` consecutive days of identical easy runs ending
// the day before `now`.
func dailyHistory(now time.Time, days int, miles, durationMin float64) []domain.Activity {
	history := make([]domain.Activity, 0, days)
	for i := days; i >= 1; i-- {
		history = append(history, domain.Activity{
			Date:          now.AddDate(0, 0, -i),
			WorkoutType:   domain.WorkoutTypeEasy,
			DistanceMiles: miles,
			DurationMin:   durationMin,
		})
	}
	return history
}

func TestEstimateTSS(t *testing.T) {
	// One hour at threshold heart rate is the 100-TSS reference point.
	assert.InDelta(t, 100, EstimateTSS(domain.Activity{DurationMin: 60, AvgHR: 170}), 0.01)

	// HR intensity is clamped on both ends.
	low := EstimateTSS(domain.Activity{DurationMin: 60, AvgHR: 40})
	assert.InDelta(t, 60*0.5*0.5*100/60, low, 0.01)
	high := EstimateTSS(domain.Activity{DurationMin: 60, AvgHR: 250})
	assert.InDelta(t, 1.15*1.15*100, high, 0.01)

	// Without HR the workout type factor stands in; races count as full.
	race := EstimateTSS(domain.Activity{DurationMin: 60, IsRace: true})
	easy := EstimateTSS(domain.Activity{DurationMin: 60, WorkoutType: domain.WorkoutTypeEasy})
	assert.Greater(t, race, easy)

	assert.Zero(t, EstimateTSS(domain.Activity{DurationMin: 0, AvgHR: 170}))
}

func TestBuildLoadProfileEmptyHistory(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	profile := BuildLoadProfile(nil, themeTestStart, cfg)

	assert.Empty(t, profile.Days)
	assert.False(t, profile.Personalized)
	assert.Equal(t, 15.0, profile.Thresholds.Fresh)
	assert.Equal(t, domain.LoadSample{}, profile.Current())
}

func TestFormUsesPreviousDayValues(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	history := dailyHistory(themeTestStart, 10, 5, 45)

	profile := BuildLoadProfile(history, themeTestStart, cfg)
	require.NotEmpty(t, profile.Days)

	// Day one: no prior training, so form starts at zero regardless of the
	// session just logged.
	assert.Zero(t, profile.Days[0].TSB)

	for i := 1; i < len(profile.Days); i++ {
		prev := profile.Days[i-1]
		assert.InDelta(t, prev.CTL-prev.ATL, profile.Days[i].TSB, 1e-9)
	}
}

func TestConsistentLoadDrivesFormNegative(t *testing.T) {
	// ATL reacts faster than CTL, so steady training keeps TSB below zero.
	cfg := config.DefaultEngineConfig()
	history := dailyHistory(themeTestStart, 30, 6, 50)

	profile := BuildLoadProfile(history, themeTestStart, cfg)
	assert.Negative(t, profile.Current().TSB)
	assert.Greater(t, profile.Current().ATL, profile.Current().CTL)
}

func TestZoneThresholdsPersonalizedWithEnoughHistory(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	history := dailyHistory(themeTestStart, 90, 6, 50)

	profile := BuildLoadProfile(history, themeTestStart, cfg)
	assert.True(t, profile.Personalized)
	assert.NotEqual(t, populationThresholds, profile.Thresholds)
	assertThresholdOrdering(t, profile.Thresholds)
}

func TestZoneThresholdsFallBackOnShortHistory(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	history := dailyHistory(themeTestStart, 20, 6, 50)

	profile := BuildLoadProfile(history, themeTestStart, cfg)
	assert.False(t, profile.Personalized)
	assert.Equal(t, populationThresholds, profile.Thresholds)
}

func TestZoneOrderingSurvivesZeroVariance(t *testing.T) {
	// An athlete whose TSB barely moves must still get four distinct,
	// correctly ordered cut points; the stddev floor guarantees it.
	cfg := config.DefaultEngineConfig()

	// Long identical history: TSB converges toward a constant, variance
	// collapses toward zero.
	history := dailyHistory(themeTestStart, 365, 5, 40)
	profile := BuildLoadProfile(history, themeTestStart, cfg)

	require.True(t, profile.Personalized)
	assertThresholdOrdering(t, profile.Thresholds)

	// The floor keeps the zones at least cfg.ZoneStdDevFloor wide.
	assert.GreaterOrEqual(t, profile.Thresholds.Fresh-profile.Thresholds.NormalLow, 2*cfg.ZoneStdDevFloor-1e-9)
}

func assertThresholdOrdering(t *testing.T, z domain.ZoneThresholds) {
	t.Helper()
	assert.Greater(t, z.Fresh, z.Recovering)
	assert.Greater(t, z.Recovering, z.NormalLow)
	assert.Greater(t, z.NormalLow, z.Danger)
}

func TestClassifyMapsAllFiveZones(t *testing.T) {
	z := domain.ZoneThresholds{Fresh: 15, Recovering: 5, NormalLow: -15, Danger: -30}

	assert.Equal(t, domain.ZoneRaceReady, z.Classify(20))
	assert.Equal(t, domain.ZoneRaceReady, z.Classify(15))
	assert.Equal(t, domain.ZoneRecovering, z.Classify(8))
	assert.Equal(t, domain.ZoneNormal, z.Classify(0))
	assert.Equal(t, domain.ZoneOverreaching, z.Classify(-20))
	assert.Equal(t, domain.ZoneDanger, z.Classify(-31))
}

func TestDailyImpulsesFillRestDays(t *testing.T) {
	// Two runs five days apart must produce a tick for every day between
	// them and up to now, zeros included, or the decay recursion drifts.
	now := themeTestStart
	history := []domain.Activity{
		{Date: now.AddDate(0, 0, -7), WorkoutType: domain.WorkoutTypeEasy, DistanceMiles: 5, DurationMin: 45},
		{Date: now.AddDate(0, 0, -2), WorkoutType: domain.WorkoutTypeEasy, DistanceMiles: 5, DurationMin: 45},
	}

	impulses := dailyImpulses(history, now)
	require.Len(t, impulses, 8)

	nonZero := 0
	for i := 1; i < len(impulses); i++ {
		assert.Equal(t, impulses[i-1].date.AddDate(0, 0, 1), impulses[i].date)
		if impulses[i].tss > 0 {
			nonZero++
		}
	}
	if impulses[0].tss > 0 {
		nonZero++
	}
	assert.Equal(t, 2, nonZero)
}
