package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is one completed session from the athlete's history, as fed in
// by the ingestion pipeline (Strava/Garmin sync lives outside this service;
// we only ever read these rows).
type Activity struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID     primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Date          time.Time          `bson:"date" json:"date"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"` // e.g. "MP long run", "Morning Run"
	WorkoutType   string             `bson:"workoutType,omitempty" json:"workoutType,omitempty"`
	DistanceMiles float64            `bson:"distanceMiles" json:"distanceMiles"`
	DurationMin   float64            `bson:"durationMin" json:"durationMin"`
	AvgHR         int                `bson:"avgHr,omitempty" json:"avgHr,omitempty"` // 0 when the device recorded none
	IsRace        bool               `bson:"isRace" json:"isRace"`
}

// Well-known workout type keys used by the history heuristics. The ingestion
// side normalizes provider sport/type strings into these.
const (
	WorkoutTypeEasy         = "easy"
	WorkoutTypeLongRun      = "long_run"
	WorkoutTypeMarathonPace = "marathon_pace"
	WorkoutTypeThreshold    = "threshold"
	WorkoutTypeInterval     = "interval"
	WorkoutTypeRepetition   = "repetition"
	WorkoutTypeStrides      = "strides"
	WorkoutTypeRace         = "race"
	WorkoutTypeRest         = "rest"
)

// PaceSecPerMile returns the average pace of the activity in seconds per
// mile, or 0 if the activity has no usable distance.
func (a *Activity) PaceSecPerMile() float64 {
	if a.DistanceMiles <= 0 {
		return 0
	}
	return a.DurationMin * 60 / a.DistanceMiles
}
