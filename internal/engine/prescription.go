package engine

import (
	"math"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

// Long run caps and minimum useful targets per goal distance, in miles.
// The cap bounds what the plan will ever prescribe; the minimum is what a
// build tries to reach when the athlete's own history is below it (growth
// toward it is still jump-capped, so a thin history simply may not get
// there in time).
func longRunCap(d domain.RaceDistance) float64 {
	switch d {
	case domain.DistanceMarathon:
		return 18
	case domain.DistanceHalf:
		return 14
	case domain.Distance10K:
		return 12
	default:
		return 10
	}
}

func longRunFloor(d domain.RaceDistance) float64 {
	switch d {
	case domain.DistanceMarathon:
		return 16
	case domain.DistanceHalf:
		return 11
	case domain.Distance10K:
		return 8
	default:
		return 6
	}
}

// Weekly long run fractions for the wind-down themes, applied to the
// previous week's long run or the achieved peak.
const (
	recoveryLongRunFactor = 0.75
	tuneUpLongRunFactor   = 0.6
	taperFirstFactor      = 0.65
	taperStepFactor       = 0.85 // each further taper week shrinks again
	raceWeekShakeoutMiles = 3.0
)

// Quality session share of the weekly stress budget, by phase key.
func qualityShare(phase string) float64 {
	switch phase {
	case "build", "peak":
		return 0.25
	case "taper":
		return 0.15
	default: // rebuild, recovery, tune_up
		return 0.10
	}
}

// Rough stress cost per mile used to size weeks and quality sessions.
const (
	easyTSSPerMile      = 7.0
	thresholdTSSPerMile = 11.0
)

// WeekPrescription is the concrete weekly targets computed from a theme
// and the athlete's capability snapshot.
type WeekPrescription struct {
	Week           domain.ThemedWeek
	TotalMiles     float64
	TotalTSS       float64
	LongRunMiles   float64
	MPSegmentMiles float64 // marathon-pace miles inside the long run; 0 when the theme forbids them
	QualityMiles   float64
	QualityTSS     float64
}

// PaceTableFromBank derives the training pace table from the race-anchored
// fitness scalar. Training-run paces are deliberately not consulted: they
// are noisy and self-reinforcing. Without any race on file the table falls
// back to tier-typical paces.
func PaceTableFromBank(bank domain.FitnessBank) domain.PaceTable {
	threshold := tierThresholdPace(bank.Experience)
	if bank.BestRaceScore > 0 {
		// Score is meters/min at an equivalent 10k; threshold effort sits
		// a touch slower than 10k race pace.
		tenKSecPerMile := metersPerMile / bank.BestRaceScore * 60
		threshold = tenKSecPerMile * 1.04
	}
	return paceTableFromThreshold(threshold)
}

func tierThresholdPace(tier domain.ExperienceTier) float64 {
	switch tier {
	case domain.TierElite:
		return 380 // 6:20/mi
	case domain.TierExperienced:
		return 450
	case domain.TierIntermediate:
		return 510
	default:
		return 570
	}
}

func paceTableFromThreshold(threshold float64) domain.PaceTable {
	return domain.PaceTable{
		EasySecPerMile:       threshold * 1.25,
		MarathonSecPerMile:   threshold * 1.09,
		ThresholdSecPerMile:  threshold,
		IntervalSecPerMile:   threshold * 0.94,
		RepetitionSecPerMile: threshold * 0.89,
	}
}

// PrescribeWeeks turns the theme sequence into weekly targets. All safety
// invariants (long run jump cap, volume ramp cap) are enforced here by
// clamping during computation, never detected after the fact.
func PrescribeWeeks(bank domain.FitnessBank, weeks []domain.ThemedWeek, race domain.GoalRace, cfg config.EngineConfig) []WeekPrescription {
	longRuns := longRunSchedule(bank, weeks, race, cfg)
	volumes := volumeSchedule(bank, weeks)

	out := make([]WeekPrescription, len(weeks))
	for i, w := range weeks {
		totalTSS := volumes[i] * easyTSSPerMile
		qTSS := totalTSS * qualityShare(w.Theme.Phase())
		qMiles := qTSS / thresholdTSSPerMile

		var mpMiles float64
		if w.Theme.AllowsMarathonPace() && race.Distance == domain.DistanceMarathon {
			// MP segment grows with position in the phase, capped at
			// roughly half the long run.
			mpMiles = math.Min(longRuns[i]*0.5, 3+float64(w.WeekInPhase))
		}

		if w.Theme == domain.ThemeRace {
			qTSS, qMiles, mpMiles = 0, 0, 0
		}

		out[i] = WeekPrescription{
			Week:           w,
			TotalMiles:     volumes[i],
			TotalTSS:       totalTSS,
			LongRunMiles:   longRuns[i],
			MPSegmentMiles: mpMiles,
			QualityMiles:   qMiles,
			QualityTSS:     qTSS,
		}
	}
	return out
}

// longRunSchedule interpolates the long run from the athlete's current
// capability toward the goal-distance target across the build/peak span.
// Increases are clamped to cfg.LongRunMaxJumpMiles per week no matter what
// the interpolation asks for, and wind-down themes step back down.
func longRunSchedule(bank domain.FitnessBank, weeks []domain.ThemedWeek, race domain.GoalRace, cfg config.EngineConfig) []float64 {
	target := math.Min(longRunCap(race.Distance), math.Max(bank.PeakLongRunMiles, longRunFloor(race.Distance)))
	start := math.Min(bank.CurrentLongRunMiles, target)
	if start <= 0 {
		start = fallbackLongRunMiles
	}

	// Count the progressing weeks (build + peak) to spread the ramp over.
	progressing := 0
	for _, w := range weeks {
		if w.Theme.IsBuild() || w.Theme == domain.ThemePeak {
			progressing++
		}
	}

	out := make([]float64, len(weeks))
	prev := start
	achievedPeak := start
	step := 0
	taperCount := 0

	for i, w := range weeks {
		var lr float64
		switch {
		case w.Theme.IsBuild() || w.Theme == domain.ThemePeak:
			step++
			if progressing > 1 {
				lr = start + (target-start)*float64(step-1)/float64(progressing-1)
			} else {
				lr = target
			}
		case w.Theme == domain.ThemeRebuildEasy || w.Theme == domain.ThemeRebuildStrides:
			// Rebuild holds near the safe starting point.
			lr = math.Min(start, prev+1)
		case w.Theme == domain.ThemeRecovery:
			lr = prev * recoveryLongRunFactor
		case w.Theme == domain.ThemeTuneUp:
			lr = prev * tuneUpLongRunFactor
		case w.Theme == domain.ThemeTaper:
			taperCount++
			if taperCount == 1 {
				lr = achievedPeak * taperFirstFactor
			} else {
				lr = prev * taperStepFactor
			}
		case w.Theme == domain.ThemeRace:
			lr = raceWeekShakeoutMiles
		}

		// Safety cap on any week-over-week increase, regardless of theme.
		if lr > prev+cfg.LongRunMaxJumpMiles {
			lr = prev + cfg.LongRunMaxJumpMiles
		}
		if lr > achievedPeak {
			achievedPeak = lr
		}
		out[i] = roundHalf(lr)
		prev = lr
	}
	return out
}

// volumeSchedule ramps weekly mileage from the recent average toward the
// athlete's demonstrated peak, with a 10% weekly ramp cap and theme-based
// reductions for recovery, taper and race weeks.
func volumeSchedule(bank domain.FitnessBank, weeks []domain.ThemedWeek) []float64 {
	start := math.Max(bank.RecentWeeklyMiles, fallbackWeeklyMiles)
	target := math.Max(bank.PeakWeeklyMiles, start)

	out := make([]float64, len(weeks))
	prev := start
	for i, w := range weeks {
		var v float64
		switch w.Theme.Phase() {
		case "recovery", "tune_up":
			v = prev * 0.7
		case "taper":
			if w.Theme == domain.ThemeRace {
				v = prev * 0.5
			} else {
				v = prev * 0.7
			}
		case "rebuild":
			v = math.Min(start, prev*1.1)
		default: // build, peak
			v = math.Min(target, prev*1.1)
		}
		if v > prev*1.1 {
			v = prev * 1.1
		}
		out[i] = roundHalf(v)
		prev = v
	}
	return out
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}
