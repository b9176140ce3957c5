package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

var themeTestStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

func raceInWeeks(weeks int, distance domain.RaceDistance) domain.GoalRace {
	return domain.GoalRace{
		Distance: distance,
		Date:     themeTestStart.AddDate(0, 0, (weeks-1)*7+6),
	}
}

func healthyBank() domain.FitnessBank {
	return domain.FitnessBank{
		PeakWeeklyMiles:     50,
		RecentWeeklyMiles:   40,
		PeakLongRunMiles:    18,
		AvgLongRunMiles:     14,
		CurrentLongRunMiles: 12,
		Experience:          domain.TierExperienced,
		Constraint:          domain.ConstraintNone,
		Data:                domain.DataFull,
	}
}

func TestLastWeekIsAlwaysRace(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	for weeks := 1; weeks <= 30; weeks++ {
		t.Run(fmt.Sprintf("%d_weeks", weeks), func(t *testing.T) {
			themes := GenerateWeekThemes(healthyBank(), raceInWeeks(weeks, domain.DistanceMarathon), nil, themeTestStart, cfg)
			require.Len(t, themes, weeks)
			assert.Equal(t, domain.ThemeRace, themes[weeks-1].Theme)
			for _, w := range themes[:weeks-1] {
				assert.NotEqual(t, domain.ThemeRace, w.Theme, "race theme must only appear in the final week")
			}
		})
	}
}

func TestTaperScalesWithDistance(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	tests := []struct {
		distance domain.RaceDistance
		taper    int
	}{
		{domain.DistanceMarathon, 3},
		{domain.DistanceHalf, 2},
		{domain.Distance10K, 1},
		{domain.Distance5K, 1},
	}
	for _, tc := range tests {
		t.Run(string(tc.distance), func(t *testing.T) {
			themes := GenerateWeekThemes(healthyBank(), raceInWeeks(16, tc.distance), nil, themeTestStart, cfg)
			count := 0
			for _, w := range themes {
				if w.Theme == domain.ThemeTaper {
					count++
				}
			}
			assert.Equal(t, tc.taper, count)
		})
	}
}

func TestShortHorizonCompressesTaper(t *testing.T) {
	// Six weeks to a marathon cannot afford a three-week taper.
	cfg := config.DefaultEngineConfig()
	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(6, domain.DistanceMarathon), nil, themeTestStart, cfg)

	require.Len(t, themes, 6)
	assert.Equal(t, domain.ThemeRace, themes[5].Theme)
	taper := 0
	for _, w := range themes {
		if w.Theme == domain.ThemeTaper {
			taper++
		}
	}
	assert.Equal(t, 1, taper)
}

func TestOneWeekHorizonIsJustRaceWeek(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(1, domain.Distance5K), nil, themeTestStart, cfg)
	require.Len(t, themes, 1)
	assert.Equal(t, domain.ThemeRace, themes[0].Theme)
}

func TestRebuildPrefixWhenConstrained(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	bank := healthyBank()
	bank.Constraint = domain.ConstraintInjury

	themes := GenerateWeekThemes(bank, raceInWeeks(16, domain.DistanceMarathon), nil, themeTestStart, cfg)

	assert.Equal(t, "rebuild", themes[0].Theme.Phase())
	// Strides come back at the end of the rebuild, never first.
	assert.Equal(t, domain.ThemeRebuildEasy, themes[0].Theme)

	sawBuild := false
	for _, w := range themes {
		if w.Theme.IsBuild() {
			sawBuild = true
		}
		if sawBuild {
			assert.NotContains(t, []domain.WeekTheme{domain.ThemeRebuildEasy, domain.ThemeRebuildStrides}, w.Theme,
				"rebuild weeks must all precede the build")
		}
	}
}

func TestNoRebuildWithoutConstraint(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(16, domain.DistanceMarathon), nil, themeTestStart, cfg)
	for _, w := range themes {
		assert.NotEqual(t, "rebuild", w.Theme.Phase())
	}
}

func TestBuildEmphasisAlternates(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(20, domain.DistanceMarathon), nil, themeTestStart, cfg)

	var prevBuild domain.WeekTheme
	for _, w := range themes {
		if !w.Theme.IsBuild() {
			continue // recovery weeks do not reset the alternation
		}
		if prevBuild != "" {
			assert.NotEqual(t, prevBuild, w.Theme, "week %d repeats build emphasis", w.WeekNumber)
		}
		prevBuild = w.Theme
	}
}

func TestMarathonPaceEmphasisOnlyForLongGoals(t *testing.T) {
	cfg := config.DefaultEngineConfig()

	marathon := GenerateWeekThemes(healthyBank(), raceInWeeks(16, domain.DistanceMarathon), nil, themeTestStart, cfg)
	sawMP := false
	for _, w := range marathon {
		if w.Theme == domain.ThemeBuildMarathonPace {
			sawMP = true
		}
	}
	assert.True(t, sawMP)

	fiveK := GenerateWeekThemes(healthyBank(), raceInWeeks(16, domain.Distance5K), nil, themeTestStart, cfg)
	for _, w := range fiveK {
		assert.NotEqual(t, domain.ThemeBuildMarathonPace, w.Theme)
	}
}

func TestRecoveryWeeksInserted(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(20, domain.DistanceMarathon), nil, themeTestStart, cfg)

	recovery := 0
	consecutiveBuilds := 0
	for _, w := range themes {
		switch {
		case w.Theme.IsBuild():
			consecutiveBuilds++
			assert.LessOrEqual(t, consecutiveBuilds, cfg.RecoveryIntervalWeeks+1,
				"too many build weeks without recovery before week %d", w.WeekNumber)
		case w.Theme == domain.ThemeRecovery:
			recovery++
			consecutiveBuilds = 0
		}
	}
	assert.Greater(t, recovery, 0)
}

func TestTuneUpClaimsItsWeek(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	tuneUp := domain.TuneUpRace{
		Distance: domain.Distance10K,
		Date:     themeTestStart.AddDate(0, 0, 7*7), // falls in week 8
	}

	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(16, domain.DistanceMarathon), []domain.TuneUpRace{tuneUp}, themeTestStart, cfg)
	assert.Equal(t, domain.ThemeTuneUp, themes[7].Theme)
}

func TestTuneUpNeverOverridesRaceWeek(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	tuneUp := domain.TuneUpRace{
		Distance: domain.Distance10K,
		Date:     themeTestStart.AddDate(0, 0, 15*7+3), // inside race week
	}

	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(16, domain.DistanceMarathon), []domain.TuneUpRace{tuneUp}, themeTestStart, cfg)
	assert.Equal(t, domain.ThemeRace, themes[15].Theme)
}

func TestPhaseAnnotationsAreConsistent(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	themes := GenerateWeekThemes(healthyBank(), raceInWeeks(18, domain.DistanceHalf), nil, themeTestStart, cfg)

	for i, w := range themes {
		assert.Equal(t, i+1, w.WeekNumber)
		assert.GreaterOrEqual(t, w.WeekInPhase, 1)
		assert.LessOrEqual(t, w.WeekInPhase, w.PhaseWeeks)
		if i > 0 && themes[i-1].Theme.Phase() == w.Theme.Phase() {
			assert.Equal(t, themes[i-1].WeekInPhase+1, w.WeekInPhase)
			assert.Equal(t, themes[i-1].PhaseWeeks, w.PhaseWeeks)
		}
	}
}
