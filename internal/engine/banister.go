package engine

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

// Two-component impulse-response model (Banister): performance at time t is
// the fitness sum minus the fatigue sum, both exponentially decayed copies
// of the same training impulses. The gain constants only scale the output,
// so for correlation-based calibration the classic k2/k1 = 2 ratio is kept
// fixed and only the decay constants are searched.
const (
	banisterFitnessGain = 1.0
	banisterFatigueGain = 2.0
)

// Default decay constants by experience tier, in days. Used whenever the
// athlete's race history is too thin to calibrate.
func defaultTaus(tier domain.ExperienceTier) (tau1, tau2 float64) {
	switch tier {
	case domain.TierElite:
		return 49, 8
	case domain.TierExperienced:
		return 42, 7
	case domain.TierIntermediate:
		return 38, 6
	default:
		return 30, 5
	}
}

// Candidate grids for the calibration search. Coarse on purpose: race
// samples are few and noisy, a finer grid would just fit noise.
var (
	tau1Candidates = []float64{30, 35, 42, 49, 55}
	tau2Candidates = []float64{5, 7, 9, 11}
)

// RaceScore converts one race performance into the single fitness scalar
// the pace table hangs off. The performance is normalized to an equivalent
// 10k via Riegel's endurance exponent and scored as meters per minute at
// that effort, so scores from different race distances are comparable.
func RaceScore(distanceMiles, durationMin float64) float64 {
	if distanceMiles <= 0 || durationMin <= 0 {
		return 0
	}
	meters := distanceMiles * metersPerMile
	// Riegel: t2 = t1 * (d2/d1)^1.06
	t10k := durationMin * math.Pow(10000.0/meters, riegelExponent)
	if t10k <= 0 {
		return 0
	}
	return 10000.0 / t10k
}

const (
	metersPerMile  = 1609.34
	riegelExponent = 1.06
)

// scoredRace pairs a race date with its fitness scalar.
type scoredRace struct {
	date  time.Time
	score float64
}

// banisterOutput evaluates the model at a single date over the given daily
// impulse series (date -> summed TSS).
func banisterOutput(impulses []dailyImpulse, at time.Time, tau1, tau2 float64) float64 {
	var fitness, fatigue float64
	for _, imp := range impulses {
		days := at.Sub(imp.date).Hours() / 24
		if days < 0 {
			break // impulses are date-ordered; nothing after the race counts
		}
		fitness += imp.tss * math.Exp(-days/tau1)
		fatigue += imp.tss * math.Exp(-days/tau2)
	}
	return banisterFitnessGain*fitness - banisterFatigueGain*fatigue
}

type dailyImpulse struct {
	date time.Time
	tss  float64
}

// calibrateTaus grid-searches the decay constants that best explain the
// athlete's race results: for each candidate pair, the model output at
// every race date is correlated (Pearson) against the race scores, and the
// pair with the highest correlation wins. Falls back to tier defaults when
// there are too few races or the search is degenerate.
func calibrateTaus(impulses []dailyImpulse, races []scoredRace, tier domain.ExperienceTier, cfg config.EngineConfig) (tau1, tau2 float64, calibrated bool) {
	tau1, tau2 = defaultTaus(tier)

	if len(races) < cfg.MinRacesForCalibration || len(impulses) == 0 {
		return tau1, tau2, false
	}

	sort.Slice(races, func(i, j int) bool { return races[i].date.Before(races[j].date) })

	scores := make([]float64, len(races))
	for i, r := range races {
		scores[i] = r.score
	}

	bestCorr := math.Inf(-1)
	for _, t1 := range tau1Candidates {
		for _, t2 := range tau2Candidates {
			outputs := make([]float64, len(races))
			for i, r := range races {
				outputs[i] = banisterOutput(impulses, r.date, t1, t2)
			}
			corr, err := stats.Pearson(outputs, scores)
			if err != nil || math.IsNaN(corr) {
				continue // zero-variance outputs or scores; skip the pair
			}
			if corr > bestCorr {
				bestCorr, tau1, tau2 = corr, t1, t2
			}
		}
	}

	if math.IsInf(bestCorr, -1) {
		// Every candidate was degenerate; keep the tier defaults.
		return tau1, tau2, false
	}
	return tau1, tau2, true
}
