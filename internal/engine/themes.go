package engine

import (
	"time"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

// GenerateWeekThemes produces the periodization sequence for weeks 1..N.
// The sequence is assembled back to front: the race week is fixed first,
// then the distance-scaled taper, then peak, and the remaining front span
// is filled with rebuild (when the athlete is returning from a break) and
// alternating build emphasis with periodic recovery weeks. Any horizon,
// however short, terminates validly by compressing phases; there is no
// "cannot generate" outcome.
func GenerateWeekThemes(bank domain.FitnessBank, race domain.GoalRace, tuneUps []domain.TuneUpRace, start time.Time, cfg config.EngineConfig) []domain.ThemedWeek {
	weeks := horizonWeeks(start, race.Date)
	themes := make([]domain.WeekTheme, weeks)

	// The last week is always race. Hard invariant, no exceptions.
	themes[weeks-1] = domain.ThemeRace

	taper := taperWeeks(race.Distance, weeks)
	for i := 0; i < taper; i++ {
		themes[weeks-2-i] = domain.ThemeTaper
	}

	front := weeks - 1 - taper
	peak := peakWeeks(front)
	for i := 0; i < peak; i++ {
		themes[front-1-i] = domain.ThemePeak
	}

	fillBuildSpan(themes[:front-peak], bank, race.Distance, cfg)
	applyTuneUps(themes, tuneUps, start)

	return annotatePhases(themes)
}

// horizonWeeks counts plan weeks from the start date through race week,
// minimum 1.
func horizonWeeks(start, raceDate time.Time) int {
	days := raceDate.Sub(start).Hours() / 24
	weeks := int(days/7) + 1
	if weeks < 1 {
		weeks = 1
	}
	return weeks
}

// taperWeeks scales the taper to the goal distance (longer races taper
// earlier) and compresses it on short horizons, never below one week when
// there is any room before the race at all.
func taperWeeks(distance domain.RaceDistance, weeks int) int {
	if weeks < 2 {
		return 0
	}
	byDistance := 1
	switch distance {
	case domain.DistanceMarathon:
		byDistance = 3
	case domain.DistanceHalf:
		byDistance = 2
	}
	compressed := (weeks - 1) / 3
	if compressed < 1 {
		compressed = 1
	}
	if byDistance < compressed {
		return byDistance
	}
	return compressed
}

func peakWeeks(front int) int {
	switch {
	case front >= 7:
		return 2
	case front >= 3:
		return 1
	default:
		return 0
	}
}

// fillBuildSpan fills the front of the plan: a rebuild prefix when the
// athlete is returning from a break, then alternating build emphasis with
// a recovery week inserted after every cfg.RecoveryIntervalWeeks build
// weeks. Recovery weeks do not count against the alternation rule.
func fillBuildSpan(span []domain.WeekTheme, bank domain.FitnessBank, distance domain.RaceDistance, cfg config.EngineConfig) {
	idx := 0

	if bank.Constraint != domain.ConstraintNone {
		rebuild := rebuildWeeks(len(span))
		for i := 0; i < rebuild; i++ {
			// Easy weeks first, strides come back last.
			if i < rebuild-1 || rebuild == 1 {
				span[idx] = domain.ThemeRebuildEasy
			} else {
				span[idx] = domain.ThemeRebuildStrides
			}
			idx++
		}
	}

	// For marathon and half goals the second emphasis is marathon pace;
	// shorter goals mix threshold with faster work instead.
	secondEmphasis := domain.ThemeBuildMixed
	if distance == domain.DistanceMarathon || distance == domain.DistanceHalf {
		secondEmphasis = domain.ThemeBuildMarathonPace
	}

	emphasis := domain.ThemeBuildThreshold
	interval := cfg.RecoveryIntervalWeeks
	if interval < 2 {
		interval = 2
	}
	sinceRecovery := 0
	for ; idx < len(span); idx++ {
		if sinceRecovery >= interval && idx < len(span)-1 {
			span[idx] = domain.ThemeRecovery
			sinceRecovery = 0
			continue // the alternation picks up where it left off
		}
		span[idx] = emphasis
		sinceRecovery++
		if emphasis == domain.ThemeBuildThreshold {
			emphasis = secondEmphasis
		} else {
			emphasis = domain.ThemeBuildThreshold
		}
	}
}

func rebuildWeeks(front int) int {
	switch {
	case front >= 8:
		return 3
	case front >= 4:
		return 2
	case front >= 1:
		return 1
	default:
		return 0
	}
}

// applyTuneUps overrides the theme of the calendar week holding each
// intermediate race with tune_up. The race week itself is never overridden.
func applyTuneUps(themes []domain.WeekTheme, tuneUps []domain.TuneUpRace, start time.Time) {
	for _, t := range tuneUps {
		week := int(t.Date.Sub(start).Hours()/24/7) + 1
		if week >= 1 && week < len(themes) {
			themes[week-1] = domain.ThemeTuneUp
		}
	}
}

// annotatePhases converts the raw theme sequence into ThemedWeeks with
// week-in-phase positions, grouping consecutive weeks that share a phase
// key. The selector's progression mapping runs off these.
func annotatePhases(themes []domain.WeekTheme) []domain.ThemedWeek {
	out := make([]domain.ThemedWeek, len(themes))

	i := 0
	for i < len(themes) {
		j := i
		for j < len(themes) && themes[j].Phase() == themes[i].Phase() {
			j++
		}
		for k := i; k < j; k++ {
			out[k] = domain.ThemedWeek{
				WeekNumber:  k + 1,
				Theme:       themes[k],
				WeekInPhase: k - i + 1,
				PhaseWeeks:  j - i,
			}
		}
		i = j
	}
	return out
}
