package engine

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

// ATL/CTL decay constants in days. These two are physiology-standard, not
// product-tunable, which is why they are code constants while the zone
// knobs live in config.
const (
	atlDays = 7.0
	ctlDays = 42.0
)

// Population default zone thresholds, used until the athlete has enough
// TSB history of their own (N=1 beats N=everyone, but only with a sample).
var populationThresholds = domain.ZoneThresholds{
	Fresh:      15,
	Recovering: 5,
	NormalLow:  -15,
	Danger:     -30,
}

// Reference threshold heart rate for the HR-based stress estimate when the
// athlete has not supplied zones. Deliberately conservative.
const defaultThresholdHR = 170.0

// EstimateTSS assigns a training stress scalar to one activity. HR-based
// when the device recorded heart rate, otherwise a workout-type intensity
// factor stands in.
func EstimateTSS(a domain.Activity) float64 {
	if a.DurationMin <= 0 {
		return 0
	}
	intensity := typeIntensityFactor(a)
	if a.AvgHR > 0 {
		intensity = float64(a.AvgHR) / defaultThresholdHR
		// Clamp: device spikes and walks both produce garbage ratios.
		intensity = math.Max(0.5, math.Min(1.15, intensity))
	}
	// One hour at threshold intensity == 100 TSS.
	return a.DurationMin / 60 * intensity * intensity * 100
}

func typeIntensityFactor(a domain.Activity) float64 {
	if a.IsRace {
		return 1.0
	}
	switch a.WorkoutType {
	case domain.WorkoutTypeThreshold:
		return 0.95
	case domain.WorkoutTypeInterval:
		return 1.05
	case domain.WorkoutTypeRepetition:
		return 1.0
	case domain.WorkoutTypeMarathonPace:
		return 0.85
	case domain.WorkoutTypeLongRun:
		return 0.75
	case domain.WorkoutTypeStrides:
		return 0.72
	default:
		return 0.70
	}
}

// BuildLoadProfile computes the daily ATL/CTL/TSB series over the athlete's
// history and derives the zone thresholds. Missing or short history never
// fails: the series is just shorter and the thresholds fall back to
// population defaults.
func BuildLoadProfile(history []domain.Activity, now time.Time, cfg config.EngineConfig) domain.TrainingLoadProfile {
	impulses := dailyImpulses(history, now)
	if len(impulses) == 0 {
		return domain.TrainingLoadProfile{Thresholds: populationThresholds}
	}

	days := make([]domain.LoadSample, 0, len(impulses))
	var atl, ctl float64
	atlLambda := 1 - math.Exp(-1/atlDays)
	ctlLambda := 1 - math.Exp(-1/ctlDays)

	for _, imp := range impulses {
		// Form is yesterday's fitness minus yesterday's fatigue; today's
		// session has not happened yet when you step out the door.
		tsb := ctl - atl
		atl += (imp.tss - atl) * atlLambda
		ctl += (imp.tss - ctl) * ctlLambda
		days = append(days, domain.LoadSample{
			Date: imp.date,
			TSS:  imp.tss,
			ATL:  atl,
			CTL:  ctl,
			TSB:  tsb,
		})
	}

	profile := domain.TrainingLoadProfile{Days: days}
	profile.Thresholds, profile.Personalized = zoneThresholds(days, cfg)
	return profile
}

// zoneThresholds personalizes the four cut points from the athlete's own
// TSB distribution when the sample is big enough, clamping the standard
// deviation to a floor so a flat history cannot collapse the zones.
// Whatever happens, the ordering fresh > recovering > normalLow > danger
// holds by construction.
func zoneThresholds(days []domain.LoadSample, cfg config.EngineConfig) (domain.ZoneThresholds, bool) {
	if len(days) < cfg.MinZoneSampleDays {
		return populationThresholds, false
	}

	tsbs := make([]float64, len(days))
	for i, d := range days {
		tsbs[i] = d.TSB
	}
	mean, err := stats.Mean(tsbs)
	if err != nil {
		return populationThresholds, false
	}
	sd, err := stats.StandardDeviation(tsbs)
	if err != nil {
		return populationThresholds, false
	}
	sd = math.Max(sd, cfg.ZoneStdDevFloor)

	return domain.ZoneThresholds{
		Fresh:      mean + sd,
		Recovering: mean + 0.25*sd,
		NormalLow:  mean - sd,
		Danger:     mean - 2*sd,
	}, true
}

// dailyImpulses buckets activity stress by calendar day (UTC) and returns
// a date-ordered series from the first activity through now, with zero
// entries for rest days so the decay recursion ticks every day.
func dailyImpulses(history []domain.Activity, now time.Time) []dailyImpulse {
	if len(history) == 0 {
		return nil
	}

	byDay := make(map[time.Time]float64)
	first := now
	for _, a := range history {
		day := a.Date.UTC().Truncate(24 * time.Hour)
		if day.After(now) {
			continue
		}
		byDay[day] += EstimateTSS(a)
		if day.Before(first) {
			first = day
		}
	}
	if len(byDay) == 0 {
		return nil
	}

	last := now.UTC().Truncate(24 * time.Hour)
	impulses := make([]dailyImpulse, 0, int(last.Sub(first).Hours()/24)+1)
	for day := first; !day.After(last); day = day.Add(24 * time.Hour) {
		impulses = append(impulses, dailyImpulse{date: day, tss: byDay[day]})
	}
	sort.Slice(impulses, func(i, j int) bool { return impulses[i].date.Before(impulses[j].date) })
	return impulses
}
