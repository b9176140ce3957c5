// Package engine implements the adaptive training-plan generation engine:
// history distillation (FitnessBank), the ATL/CTL/TSB load model, the week
// theme state machine, workout prescription, and the audited template
// selector. Everything in this package is pure computation over snapshots
// handed in by the service layer; no I/O, no clocks, no package state.
package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

// Experience tier bands, in average weekly miles over the recent window.
const (
	tierIntermediateMiles = 15.0
	tierExperiencedMiles  = 30.0
	tierEliteMiles        = 50.0
)

// Window sizes for the capability scan.
const (
	recentWindowDays   = 42  // "current" values come from here
	baselineMinDays    = 90  // baseline volume window: 3..12 months back
	baselineMaxDays    = 365
	patternWindowDays  = 180
	fullDataMinDays    = 120
	partialDataMinDays = 42
)

// Coarse fallback capability for an athlete with essentially no history.
// Conservative on purpose: the safety clamps grow the plan from here.
const (
	fallbackLongRunMiles = 4.0
	fallbackWeeklyMiles  = 10.0
)

// BuildFitnessBank distills the athlete's full activity history into a
// capability snapshot. Insufficient data never raises: the returned bank
// carries a DataTier flag and coarse fallback values instead.
func BuildFitnessBank(history []domain.Activity, now time.Time, cfg config.EngineConfig) domain.FitnessBank {
	runs := usableRuns(history, now)
	if len(runs) == 0 {
		return defaultedBank()
	}

	bank := domain.FitnessBank{Data: domain.DataPartial}

	bank.PeakWeeklyMiles = peakRollingSum(runs, 7)
	bank.PeakMonthlyMiles = peakRollingSum(runs, 30)
	bank.RecentWeeklyMiles = averageWeeklyMiles(runs, now, recentWindowDays)

	bank.Experience = classifyExperience(bank.RecentWeeklyMiles)
	bank.Constraint = detectConstraint(runs, now, cfg)

	fillLongRunStats(&bank, runs, now, cfg)
	bank.PeakThresholdMiles = peakByType(runs, domain.WorkoutTypeThreshold)

	// Peak CTL comes from the same load model the tracker uses.
	profile := BuildLoadProfile(runs, now, cfg)
	for _, d := range profile.Days {
		if d.CTL > bank.PeakCTL {
			bank.PeakCTL = d.CTL
		}
	}

	races := scoredRaces(runs)
	for _, r := range races {
		if r.score > bank.BestRaceScore {
			bank.BestRaceScore = r.score
		}
	}
	bank.BestRaceDistance = bestRaceDistance(runs)
	bank.Tau1Days, bank.Tau2Days, bank.TauCalibrated = calibrateTaus(dailyImpulses(runs, now), races, bank.Experience, cfg)

	bank.Pattern = observePattern(runs, now)

	historyDays := now.Sub(runs[0].Date).Hours() / 24
	switch {
	case historyDays >= fullDataMinDays && len(races) > 0:
		bank.Data = domain.DataFull
	case historyDays >= partialDataMinDays:
		bank.Data = domain.DataPartial
	default:
		bank.Data = domain.DataDefaulted
	}

	clampPeaks(&bank)
	return bank
}

func defaultedBank() domain.FitnessBank {
	tau1, tau2 := defaultTaus(domain.TierBeginner)
	return domain.FitnessBank{
		PeakWeeklyMiles:     fallbackWeeklyMiles,
		PeakMonthlyMiles:    fallbackWeeklyMiles * 4,
		PeakLongRunMiles:    fallbackLongRunMiles,
		AvgLongRunMiles:     fallbackLongRunMiles,
		CurrentLongRunMiles: fallbackLongRunMiles,
		RecentWeeklyMiles:   fallbackWeeklyMiles,
		Experience:          domain.TierBeginner,
		Constraint:          domain.ConstraintNone,
		Tau1Days:            tau1,
		Tau2Days:            tau2,
		Pattern:             defaultPattern(),
		Data:                domain.DataDefaulted,
	}
}

func defaultPattern() domain.TrainingPattern {
	return domain.TrainingPattern{
		LongRunDay: time.Sunday,
		QualityDay: time.Wednesday,
		RestDays:   []time.Weekday{time.Monday, time.Friday},
	}
}

// usableRuns filters to dated runs with positive distance, sorted ascending.
func usableRuns(history []domain.Activity, now time.Time) []domain.Activity {
	runs := make([]domain.Activity, 0, len(history))
	for _, a := range history {
		if a.DistanceMiles <= 0 || a.Date.IsZero() || a.Date.After(now) {
			continue
		}
		runs = append(runs, a)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Date.Before(runs[j].Date) })
	return runs
}

// peakRollingSum finds the best windowDays-day mileage sum anywhere in the
// history, using a two-pointer sweep over the date-ordered runs.
func peakRollingSum(runs []domain.Activity, windowDays int) float64 {
	window := time.Duration(windowDays) * 24 * time.Hour
	var best, sum float64
	left := 0
	for right := 0; right < len(runs); right++ {
		sum += runs[right].DistanceMiles
		for runs[right].Date.Sub(runs[left].Date) >= window {
			sum -= runs[left].DistanceMiles
			left++
		}
		if sum > best {
			best = sum
		}
	}
	return best
}

func averageWeeklyMiles(runs []domain.Activity, now time.Time, windowDays int) float64 {
	cutoff := now.AddDate(0, 0, -windowDays)
	var miles float64
	for _, r := range runs {
		if r.Date.After(cutoff) {
			miles += r.DistanceMiles
		}
	}
	return miles / (float64(windowDays) / 7)
}

func classifyExperience(recentWeekly float64) domain.ExperienceTier {
	switch {
	case recentWeekly >= tierEliteMiles:
		return domain.TierElite
	case recentWeekly >= tierExperiencedMiles:
		return domain.TierExperienced
	case recentWeekly >= tierIntermediateMiles:
		return domain.TierIntermediate
	default:
		return domain.TierBeginner
	}
}

// detectConstraint compares recent volume against the 3-12 month baseline.
// A relative drop beyond cfg.BreakDropFraction flags the athlete as
// returning from a break; the break is then classified by the longest
// no-running gap in the recent half year. The drop cutoff is a product
// knob, not a derived constant.
func detectConstraint(runs []domain.Activity, now time.Time, cfg config.EngineConfig) domain.ConstraintType {
	baselineStart := now.AddDate(0, 0, -baselineMaxDays)
	baselineEnd := now.AddDate(0, 0, -baselineMinDays)

	var baselineMiles float64
	for _, r := range runs {
		if r.Date.After(baselineStart) && r.Date.Before(baselineEnd) {
			baselineMiles += r.DistanceMiles
		}
	}
	baselineWeekly := baselineMiles / (float64(baselineMaxDays-baselineMinDays) / 7)
	if baselineWeekly <= 0 {
		return domain.ConstraintNone // no established baseline to fall from
	}

	recentWeekly := averageWeeklyMiles(runs, now, recentWindowDays)
	if recentWeekly >= baselineWeekly*(1-cfg.BreakDropFraction) {
		return domain.ConstraintNone
	}

	// Volume collapsed. A long dead gap reads as injury, a shorter one as
	// illness, a drop without any real gap as life load.
	gap := longestGapDays(runs, now, patternWindowDays)
	switch {
	case gap >= cfg.InjuryGapDays:
		return domain.ConstraintInjury
	case gap >= cfg.InjuryGapDays/2:
		return domain.ConstraintIllness
	default:
		return domain.ConstraintLife
	}
}

func longestGapDays(runs []domain.Activity, now time.Time, windowDays int) int {
	cutoff := now.AddDate(0, 0, -windowDays)
	prev := cutoff
	longest := 0.0
	for _, r := range runs {
		if r.Date.Before(cutoff) {
			continue
		}
		if gap := r.Date.Sub(prev).Hours() / 24; gap > longest {
			longest = gap
		}
		prev = r.Date
	}
	if gap := now.Sub(prev).Hours() / 24; gap > longest {
		longest = gap
	}
	return int(longest)
}

// fillLongRunStats computes the long run trio: peak is the single biggest
// run ever, typical is the 75th percentile of qualifying runs, current is
// the recent-window maximum. Marathon-pace long runs are split out by
// name/type heuristics since providers rarely tag them.
func fillLongRunStats(bank *domain.FitnessBank, runs []domain.Activity, now time.Time, cfg config.EngineConfig) {
	recentCutoff := now.AddDate(0, 0, -recentWindowDays)
	var qualifying []float64

	for _, r := range runs {
		if r.DistanceMiles > bank.PeakLongRunMiles {
			bank.PeakLongRunMiles = r.DistanceMiles
		}
		isLong := r.DurationMin >= cfg.LongRunMinMinutes || r.WorkoutType == domain.WorkoutTypeLongRun
		if isLong {
			qualifying = append(qualifying, r.DistanceMiles)
			if isMarathonPaceRun(r) && r.DistanceMiles > bank.PeakMPLongRunMiles {
				bank.PeakMPLongRunMiles = r.DistanceMiles
			}
		}
		if r.Date.After(recentCutoff) && r.DistanceMiles > bank.CurrentLongRunMiles {
			bank.CurrentLongRunMiles = r.DistanceMiles
		}
	}

	if len(qualifying) > 0 {
		if p75, err := stats.Percentile(qualifying, 75); err == nil {
			bank.AvgLongRunMiles = p75
		}
	}
	if bank.AvgLongRunMiles == 0 {
		bank.AvgLongRunMiles = bank.PeakLongRunMiles * 0.7
	}
	if bank.CurrentLongRunMiles == 0 {
		// Nothing in the recent window; assume the typical long run, not
		// the peak, as the safe starting point.
		bank.CurrentLongRunMiles = bank.AvgLongRunMiles
	}
}

func isMarathonPaceRun(a domain.Activity) bool {
	if a.WorkoutType == domain.WorkoutTypeMarathonPace {
		return true
	}
	name := strings.ToLower(a.Name)
	return strings.Contains(name, "marathon pace") || strings.Contains(name, "mp ") ||
		strings.HasPrefix(name, "mp") || strings.Contains(name, " mp")
}

func peakByType(runs []domain.Activity, workoutType string) float64 {
	var peak float64
	for _, r := range runs {
		if r.WorkoutType == workoutType && r.DistanceMiles > peak {
			peak = r.DistanceMiles
		}
	}
	return peak
}

func scoredRaces(runs []domain.Activity) []scoredRace {
	var races []scoredRace
	for _, r := range runs {
		if !r.IsRace {
			continue
		}
		if score := RaceScore(r.DistanceMiles, r.DurationMin); score > 0 {
			races = append(races, scoredRace{date: r.Date, score: score})
		}
	}
	return races
}

func bestRaceDistance(runs []domain.Activity) domain.RaceDistance {
	var best float64
	var dist domain.RaceDistance
	for _, r := range runs {
		if !r.IsRace {
			continue
		}
		if score := RaceScore(r.DistanceMiles, r.DurationMin); score > best {
			best = score
			dist = nearestRaceDistance(r.DistanceMiles)
		}
	}
	return dist
}

func nearestRaceDistance(miles float64) domain.RaceDistance {
	candidates := []domain.RaceDistance{
		domain.Distance5K, domain.Distance10K, domain.DistanceHalf, domain.DistanceMarathon,
	}
	best := candidates[0]
	bestDiff := math.Abs(miles - best.Miles())
	for _, c := range candidates[1:] {
		if diff := math.Abs(miles - c.Miles()); diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	return best
}

// observePattern reads the athlete's habitual week shape out of the last
// half year: modal long run weekday, modal quality weekday, and the two
// least-active weekdays as rest days.
func observePattern(runs []domain.Activity, now time.Time) domain.TrainingPattern {
	cutoff := now.AddDate(0, 0, -patternWindowDays)
	var longDays, qualityDays, allDays [7]int

	for _, r := range runs {
		if r.Date.Before(cutoff) {
			continue
		}
		wd := r.Date.Weekday()
		allDays[wd]++
		switch r.WorkoutType {
		case domain.WorkoutTypeLongRun:
			longDays[wd]++
		case domain.WorkoutTypeThreshold, domain.WorkoutTypeInterval, domain.WorkoutTypeRepetition, domain.WorkoutTypeMarathonPace:
			qualityDays[wd]++
		}
	}

	pattern := defaultPattern()
	if d, ok := modalWeekday(longDays); ok {
		pattern.LongRunDay = d
	}
	if d, ok := modalWeekday(qualityDays); ok && d != pattern.LongRunDay {
		pattern.QualityDay = d
	}
	pattern.RestDays = quietestWeekdays(allDays, pattern.LongRunDay, pattern.QualityDay)
	return pattern
}

func modalWeekday(counts [7]int) (time.Weekday, bool) {
	best, bestCount := time.Sunday, 0
	for wd, n := range counts {
		if n > bestCount {
			best, bestCount = time.Weekday(wd), n
		}
	}
	return best, bestCount > 0
}

func quietestWeekdays(counts [7]int, exclude ...time.Weekday) []time.Weekday {
	type dayCount struct {
		day time.Weekday
		n   int
	}
	var candidates []dayCount
	for wd, n := range counts {
		day := time.Weekday(wd)
		skip := false
		for _, ex := range exclude {
			if day == ex {
				skip = true
			}
		}
		if !skip {
			candidates = append(candidates, dayCount{day, n})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].n != candidates[j].n {
			return candidates[i].n < candidates[j].n
		}
		return candidates[i].day < candidates[j].day // stable for equal counts
	})
	rest := []time.Weekday{}
	for i := 0; i < 2 && i < len(candidates); i++ {
		rest = append(rest, candidates[i].day)
	}
	return rest
}

// clampPeaks enforces the snapshot invariant: peaks are never below the
// corresponding current/average values.
func clampPeaks(bank *domain.FitnessBank) {
	bank.PeakLongRunMiles = math.Max(bank.PeakLongRunMiles, math.Max(bank.AvgLongRunMiles, bank.CurrentLongRunMiles))
	bank.PeakWeeklyMiles = math.Max(bank.PeakWeeklyMiles, bank.RecentWeeklyMiles)
	bank.PeakMonthlyMiles = math.Max(bank.PeakMonthlyMiles, bank.PeakWeeklyMiles)
}
