package domain

import "time"

// ExperienceTier classifies an athlete by recent average weekly volume.
type ExperienceTier string

const (
	TierBeginner     ExperienceTier = "beginner"
	TierIntermediate ExperienceTier = "intermediate"
	TierExperienced  ExperienceTier = "experienced"
	TierElite        ExperienceTier = "elite"
)

// ConstraintType marks an athlete returning from a break (or not).
type ConstraintType string

const (
	ConstraintNone    ConstraintType = "none"
	ConstraintInjury  ConstraintType = "injury"
	ConstraintIllness ConstraintType = "illness"
	ConstraintLife    ConstraintType = "life"
)

// DataTier flags how much real history backed a derived snapshot. Thin
// history is never an error; it only lowers the tier.
type DataTier string

const (
	DataFull      DataTier = "full"      // enough history for every model
	DataPartial   DataTier = "partial"   // some models fell back to defaults
	DataDefaulted DataTier = "defaulted" // essentially no usable history
)

// TrainingPattern captures the athlete's habitual week shape, observed
// from history rather than asked for.
type TrainingPattern struct {
	LongRunDay time.Weekday   `json:"longRunDay"`
	QualityDay time.Weekday   `json:"qualityDay"`
	RestDays   []time.Weekday `json:"restDays"`
}

// FitnessBank is the capability snapshot distilled from the athlete's full
// activity history. It is recomputed on every generation request and never
// persisted as a source of truth.
//
// Invariant: every Peak* value is >= the corresponding current/average
// value. BuildFitnessBank enforces this by construction.
type FitnessBank struct {
	PeakWeeklyMiles  float64 `json:"peakWeeklyMiles"`  // best rolling 7-day sum
	PeakMonthlyMiles float64 `json:"peakMonthlyMiles"` // best rolling 30-day sum

	PeakLongRunMiles    float64 `json:"peakLongRunMiles"`
	AvgLongRunMiles     float64 `json:"avgLongRunMiles"` // 75th percentile of qualifying runs
	CurrentLongRunMiles float64 `json:"currentLongRunMiles"`
	PeakMPLongRunMiles  float64 `json:"peakMpLongRunMiles"` // longest marathon-pace long run

	PeakThresholdMiles float64      `json:"peakThresholdMiles"` // biggest single threshold session
	PeakCTL            float64      `json:"peakCtl"`
	RecentWeeklyMiles  float64      `json:"recentWeeklyMiles"` // recent-window weekly average
	BestRaceScore      float64      `json:"bestRaceScore"`     // race-anchored fitness scalar, 0 if no races
	BestRaceDistance   RaceDistance `json:"bestRaceDistance,omitempty"`

	Experience ExperienceTier `json:"experience"`
	Constraint ConstraintType `json:"constraint"`

	// Individual Banister decay constants, in days. Tau1 is the slow
	// fitness component, Tau2 the fast fatigue component.
	Tau1Days      float64 `json:"tau1Days"`
	Tau2Days      float64 `json:"tau2Days"`
	TauCalibrated bool    `json:"tauCalibrated"`

	Pattern TrainingPattern `json:"pattern"`

	Data DataTier `json:"data"`
}
