package domain

import "time"

// LoadZone is the classification of a single TSB value.
type LoadZone string

const (
	ZoneRaceReady    LoadZone = "race_ready"
	ZoneRecovering   LoadZone = "recovering"
	ZoneNormal       LoadZone = "normal_training"
	ZoneOverreaching LoadZone = "overreaching"
	ZoneDanger       LoadZone = "danger"
)

// LoadSample is one day of the ATL/CTL/TSB time series.
type LoadSample struct {
	Date time.Time `json:"date"`
	TSS  float64   `json:"tss"` // summed stress of the day's activities
	ATL  float64   `json:"atl"`
	CTL  float64   `json:"ctl"`
	TSB  float64   `json:"tsb"` // CTL - ATL, using the previous day's values
}

// ZoneThresholds are the four ordered cut points between the five zones.
//
// Invariant: Fresh > Recovering > NormalLow > Danger, for any input
// distribution. BuildLoadProfile enforces this even for degenerate
// zero-variance histories.
type ZoneThresholds struct {
	Fresh      float64 `json:"fresh"`
	Recovering float64 `json:"recovering"`
	NormalLow  float64 `json:"normalLow"`
	Danger     float64 `json:"danger"`
}

// Classify maps a TSB value onto a zone via the ordered thresholds.
func (z ZoneThresholds) Classify(tsb float64) LoadZone {
	switch {
	case tsb >= z.Fresh:
		return ZoneRaceReady
	case tsb >= z.Recovering:
		return ZoneRecovering
	case tsb >= z.NormalLow:
		return ZoneNormal
	case tsb >= z.Danger:
		return ZoneOverreaching
	default:
		return ZoneDanger
	}
}

// TrainingLoadProfile is the daily load series plus the athlete's zone
// cut points. Personalized is true when the thresholds came from the
// athlete's own TSB distribution rather than population defaults.
type TrainingLoadProfile struct {
	Days         []LoadSample   `json:"days"`
	Thresholds   ZoneThresholds `json:"thresholds"`
	Personalized bool           `json:"personalized"`
}

// Current returns the most recent sample, or a zero sample for an empty
// history.
func (p *TrainingLoadProfile) Current() LoadSample {
	if len(p.Days) == 0 {
		return LoadSample{}
	}
	return p.Days[len(p.Days)-1]
}
