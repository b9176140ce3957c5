package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

func prescribe(t *testing.T, bank domain.FitnessBank, weeks int, distance domain.RaceDistance) []WeekPrescription {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	race := raceInWeeks(weeks, distance)
	themes := GenerateWeekThemes(bank, race, nil, themeTestStart, cfg)
	return PrescribeWeeks(bank, themes, race, cfg)
}

func TestLongRunJumpCapHoldsEverywhere(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	banks := []domain.FitnessBank{
		healthyBank(),
		{PeakLongRunMiles: 6, AvgLongRunMiles: 5, CurrentLongRunMiles: 4, RecentWeeklyMiles: 12, PeakWeeklyMiles: 20, Experience: domain.TierBeginner},
		{PeakLongRunMiles: 22, AvgLongRunMiles: 16, CurrentLongRunMiles: 8, RecentWeeklyMiles: 30, PeakWeeklyMiles: 60, Experience: domain.TierElite, Constraint: domain.ConstraintInjury},
	}
	distances := []domain.RaceDistance{domain.Distance5K, domain.Distance10K, domain.DistanceHalf, domain.DistanceMarathon}

	for bi, bank := range banks {
		for _, d := range distances {
			for weeks := 2; weeks <= 24; weeks++ {
				t.Run(fmt.Sprintf("bank%d_%s_%dw", bi, d, weeks), func(t *testing.T) {
					prescriptions := prescribe(t, bank, weeks, d)
					for i := 1; i < len(prescriptions); i++ {
						jump := prescriptions[i].LongRunMiles - prescriptions[i-1].LongRunMiles
						assert.LessOrEqual(t, jump, cfg.LongRunMaxJumpMiles,
							"week %d long run jumped %.1f miles", i+1, jump)
					}
				})
			}
		}
	}
}

func TestLongRunStartsAtCurrentCapability(t *testing.T) {
	// An athlete whose longest recent run is 8 miles must not open with a
	// 14-miler, whatever the goal demands.
	bank := healthyBank()
	bank.CurrentLongRunMiles = 8

	prescriptions := prescribe(t, bank, 16, domain.DistanceMarathon)
	assert.InDelta(t, 8.0, prescriptions[0].LongRunMiles, 0.5)
}

func TestMarathonLongRunReachesTargetAndTapers(t *testing.T) {
	prescriptions := prescribe(t, healthyBank(), 16, domain.DistanceMarathon)

	// Demonstrated 18-mile capability with an 18-mile cap: the build should
	// actually get there.
	var peak float64
	for _, p := range prescriptions {
		if p.LongRunMiles > peak {
			peak = p.LongRunMiles
		}
	}
	assert.Equal(t, 18.0, peak)

	// Taper weeks step down from the achieved peak, well short of it.
	last := len(prescriptions) - 1
	for _, p := range prescriptions {
		if p.Week.Theme == domain.ThemeTaper {
			assert.Less(t, p.LongRunMiles, peak*0.8)
		}
	}
	assert.Equal(t, raceWeekShakeoutMiles, prescriptions[last].LongRunMiles)
}

func TestLongRunNeverExceedsDistanceCap(t *testing.T) {
	bank := healthyBank()
	bank.PeakLongRunMiles = 22 // ultramarathon habits don't raise the cap
	bank.CurrentLongRunMiles = 20

	for _, d := range []domain.RaceDistance{domain.Distance5K, domain.Distance10K, domain.DistanceHalf, domain.DistanceMarathon} {
		prescriptions := prescribe(t, bank, 16, d)
		for _, p := range prescriptions {
			assert.LessOrEqual(t, p.LongRunMiles, longRunCap(d), "distance %s", d)
		}
	}
}

func TestWeeklyVolumeRampCap(t *testing.T) {
	bank := healthyBank()
	bank.RecentWeeklyMiles = 20
	bank.PeakWeeklyMiles = 60

	prescriptions := prescribe(t, bank, 20, domain.DistanceMarathon)
	for i := 1; i < len(prescriptions); i++ {
		// 10% ramp cap, with half-mile rounding slack.
		assert.LessOrEqual(t, prescriptions[i].TotalMiles, prescriptions[i-1].TotalMiles*1.1+0.6,
			"week %d volume ramped too fast", i+1)
	}
}

func TestRaceWeekHasNoQuality(t *testing.T) {
	prescriptions := prescribe(t, healthyBank(), 12, domain.DistanceHalf)
	last := prescriptions[len(prescriptions)-1]
	require.Equal(t, domain.ThemeRace, last.Week.Theme)
	assert.Zero(t, last.QualityMiles)
	assert.Zero(t, last.MPSegmentMiles)
}

func TestMPSegmentsOnlyInMarathonPlansAndAllowedThemes(t *testing.T) {
	half := prescribe(t, healthyBank(), 16, domain.DistanceHalf)
	for _, p := range half {
		assert.Zero(t, p.MPSegmentMiles, "non-marathon goal must not prescribe MP segments")
	}

	marathon := prescribe(t, healthyBank(), 16, domain.DistanceMarathon)
	sawMP := false
	for _, p := range marathon {
		if p.MPSegmentMiles > 0 {
			sawMP = true
			assert.True(t, p.Week.Theme.AllowsMarathonPace(), "MP miles in %s week", p.Week.Theme)
			assert.LessOrEqual(t, p.MPSegmentMiles, p.LongRunMiles*0.5+0.01)
		}
	}
	assert.True(t, sawMP)
}

func TestPaceTableOrdering(t *testing.T) {
	for _, tier := range []domain.ExperienceTier{domain.TierBeginner, domain.TierIntermediate, domain.TierExperienced, domain.TierElite} {
		paces := PaceTableFromBank(domain.FitnessBank{Experience: tier})
		assert.Less(t, paces.RepetitionSecPerMile, paces.IntervalSecPerMile)
		assert.Less(t, paces.IntervalSecPerMile, paces.ThresholdSecPerMile)
		assert.Less(t, paces.ThresholdSecPerMile, paces.MarathonSecPerMile)
		assert.Less(t, paces.MarathonSecPerMile, paces.EasySecPerMile)
	}
}

func TestPaceTableAnchorsOnRaceScore(t *testing.T) {
	// A 40:00 10k scores 250 m/min; threshold should sit just slower than
	// that race pace, not at the tier default.
	score := RaceScore(domain.Distance10K.Miles(), 40)
	bank := domain.FitnessBank{Experience: domain.TierExperienced, BestRaceScore: score}

	paces := PaceTableFromBank(bank)
	tenKSecPerMile := metersPerMile / score * 60
	assert.InDelta(t, tenKSecPerMile*1.04, paces.ThresholdSecPerMile, 0.01)
	assert.NotEqual(t, tierThresholdPace(domain.TierExperienced), paces.ThresholdSecPerMile)
}

func TestRaceScoreNormalizesAcrossDistances(t *testing.T) {
	// Equivalent performances per Riegel should score (nearly) the same.
	tenK := RaceScore(domain.Distance10K.Miles(), 40)
	fiveKMin := 40 / math.Pow(2, riegelExponent)
	fiveK := RaceScore(domain.Distance5K.Miles(), fiveKMin)
	assert.InDelta(t, tenK, fiveK, tenK*0.01)

	assert.Zero(t, RaceScore(0, 40))
	assert.Zero(t, RaceScore(6.2, 0))
}
