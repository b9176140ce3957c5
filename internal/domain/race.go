package domain

import "time"

// RaceDistance is the supported goal race distance key.
type RaceDistance string

const (
	Distance5K       RaceDistance = "5k"
	Distance10K      RaceDistance = "10k"
	DistanceHalf     RaceDistance = "half_marathon"
	DistanceMarathon RaceDistance = "marathon"
)

// Miles returns the race distance in miles, or 0 for an unknown key.
func (d RaceDistance) Miles() float64 {
	switch d {
	case Distance5K:
		return 3.107
	case Distance10K:
		return 6.214
	case DistanceHalf:
		return 13.109
	case DistanceMarathon:
		return 26.219
	}
	return 0
}

// Valid reports whether the distance key is one we can plan for.
func (d RaceDistance) Valid() bool {
	return d.Miles() > 0
}

// GoalRace is the target event the whole plan points at.
type GoalRace struct {
	Distance RaceDistance `bson:"distance" json:"distance"`
	Date     time.Time    `bson:"date" json:"date"`
}

// TuneUpRace is an optional intermediate race. It claims exactly one week
// of the plan as a tune_up week at its calendar position.
type TuneUpRace struct {
	Distance RaceDistance `bson:"distance" json:"distance"`
	Date     time.Time    `bson:"date" json:"date"`
	Purpose  string       `bson:"purpose,omitempty" json:"purpose,omitempty"` // e.g. "rust_buster", "fitness_check"
}
