package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"strideiq/plan-engine/internal/config"
	"strideiq/plan-engine/internal/domain"
)

// Input validation errors. These are the only errors a generation request
// can fail with: everything past the boundary degrades instead of failing.
var (
	ErrRaceNotInFuture  = errors.New("goal race date must be after the plan start date")
	ErrUnknownDistance  = errors.New("unsupported race distance key")
	ErrTuneUpOutOfRange = errors.New("tune-up race date falls outside the plan horizon")
)

// PlanRequest is one plan generation invocation. The caller is responsible
// for serializing concurrent generations for the same athlete; the engine
// itself is a pure computation over the snapshots it is handed.
type PlanRequest struct {
	AthleteID primitive.ObjectID
	Race      domain.GoalRace
	TuneUps   []domain.TuneUpRace
	StartDate time.Time

	TimeAvailableMin int
	Facilities       []string
}

// GeneratedPlan is the complete output of one generation: the summary, the
// day-by-day calendar, and one audit event per quality selection. The
// caller persists all three atomically (wholesale replace, never a partial
// patch).
type GeneratedPlan struct {
	Plan     domain.TrainingPlan
	Workouts []domain.PlannedWorkout
	Audits   []domain.WorkoutSelectionAuditEvent
	Bank     domain.FitnessBank
	Load     domain.TrainingLoadProfile
}

// Validate rejects malformed requests before any model computation runs.
func (r *PlanRequest) Validate() error {
	if !r.Race.Distance.Valid() {
		return ErrUnknownDistance
	}
	if !r.Race.Date.After(r.StartDate) {
		return ErrRaceNotInFuture
	}
	for _, t := range r.TuneUps {
		if t.Date.Before(r.StartDate) || t.Date.After(r.Race.Date) {
			return ErrTuneUpOutOfRange
		}
	}
	return nil
}

// GeneratePlan runs the whole pipeline: FitnessBank, load profile, week
// themes, weekly prescriptions, template selection, and day placement.
// Pure given its inputs; generationID is minted by the caller.
func GeneratePlan(history []domain.Activity, registry []domain.WorkoutTemplate, req PlanRequest, generationID string, cfg config.EngineConfig) (GeneratedPlan, error) {
	if err := req.Validate(); err != nil {
		return GeneratedPlan{}, err
	}

	bank := BuildFitnessBank(history, req.StartDate, cfg)
	load := BuildLoadProfile(history, req.StartDate, cfg)
	weeks := GenerateWeekThemes(bank, req.Race, req.TuneUps, req.StartDate, cfg)
	prescriptions := PrescribeWeeks(bank, weeks, req.Race, cfg)
	paces := PaceTableFromBank(bank)

	out := GeneratedPlan{Bank: bank, Load: load}
	var recentIDs []string

	for _, p := range prescriptions {
		weekStart := req.StartDate.AddDate(0, 0, (p.Week.WeekNumber-1)*7)

		var quality *domain.PlannedWorkout
		if p.QualityMiles > 0 && len(registry) > 0 {
			sel, event, err := SelectTemplate(registry, SelectionInput{
				AthleteID:         req.AthleteID,
				GenerationID:      generationID,
				Trigger:           "plan_generation",
				Phase:             p.Week.Theme.Phase(),
				WeekNumber:        p.Week.WeekNumber,
				WeekInPhase:       p.Week.WeekInPhase,
				PhaseWeeks:        p.Week.PhaseWeeks,
				TimeAvailableMin:  req.TimeAvailableMin,
				Facilities:        req.Facilities,
				RecentTemplateIDs: recentIDs,
			})
			if err == nil {
				recentIDs = append(recentIDs, sel.Template.ID)
				out.Audits = append(out.Audits, event)
				quality = qualityWorkout(p, sel, paces)
			}
			// ErrEmptyRegistry cannot happen here (len checked), but a
			// plan without quality sessions is still a valid plan.
		}

		out.Workouts = append(out.Workouts, layoutWeek(req, generationID, p, bank, paces, quality, weekStart)...)
	}

	out.Plan = buildSummary(req, generationID, bank, weeks, prescriptions, paces)
	return out, nil
}

// layoutWeek places the week's sessions on calendar days following the
// athlete's habitual pattern: long run on their long run day, quality on
// their quality day, easy running spread over the remaining non-rest days.
func layoutWeek(req PlanRequest, generationID string, p WeekPrescription, bank domain.FitnessBank, paces domain.PaceTable, quality *domain.PlannedWorkout, weekStart time.Time) []domain.PlannedWorkout {
	var workouts []domain.PlannedWorkout

	days := make(map[time.Weekday]*domain.PlannedWorkout)

	// Long run day.
	if p.LongRunMiles > 0 && p.Week.Theme != domain.ThemeRace {
		days[bank.Pattern.LongRunDay] = longRunWorkout(p, paces)
	}

	// Quality day, never stacked on the long run day.
	if quality != nil {
		qDay := bank.Pattern.QualityDay
		if qDay == bank.Pattern.LongRunDay {
			qDay = (qDay + 3) % 7
		}
		days[qDay] = quality
	}

	// Race day: the plan's terminal event lands on its actual date.
	if p.Week.Theme == domain.ThemeRace {
		days[req.Race.Date.Weekday()] = &domain.PlannedWorkout{
			WorkoutType:       domain.WorkoutTypeRace,
			TargetMiles:       req.Race.Distance.Miles(),
			TargetPaceSecMile: racePace(req.Race.Distance, paces),
			Description:       fmt.Sprintf("Goal race: %s. Trust the plan.", req.Race.Distance),
		}
	}

	// Remaining volume becomes easy days on the non-rest weekdays.
	remaining := p.TotalMiles - p.LongRunMiles - p.QualityMiles
	if p.Week.Theme == domain.ThemeRace {
		remaining = math.Min(remaining, raceWeekShakeoutMiles*2)
	}
	easyDays := easyWeekdays(bank.Pattern, days)
	perDay := 0.0
	if len(easyDays) > 0 && remaining > 0 {
		perDay = roundHalf(remaining / float64(len(easyDays)))
	}
	for _, wd := range easyDays {
		if perDay <= 0 {
			break
		}
		days[wd] = &domain.PlannedWorkout{
			WorkoutType:       domain.WorkoutTypeEasy,
			TargetMiles:       perDay,
			TargetPaceSecMile: paces.EasySecPerMile,
			Description:       describeEasy(p.Week.Theme, perDay),
		}
	}

	// Rest days round out the calendar so every day of the plan exists.
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		w, ok := days[wd]
		if !ok {
			w = &domain.PlannedWorkout{
				WorkoutType: domain.WorkoutTypeRest,
				Description: "Rest day.",
			}
		}
		w.AthleteID = req.AthleteID
		w.GenerationID = generationID
		w.Date = dateFor(weekStart, wd)
		w.WeekNumber = p.Week.WeekNumber
		w.Theme = p.Week.Theme
		workouts = append(workouts, *w)
	}
	return workouts
}

func longRunWorkout(p WeekPrescription, paces domain.PaceTable) *domain.PlannedWorkout {
	desc := fmt.Sprintf("Long run, %.1f mi easy.", p.LongRunMiles)
	workoutType := domain.WorkoutTypeLongRun
	if p.MPSegmentMiles > 0 {
		desc = fmt.Sprintf("Long run, %.1f mi with final %.1f mi at marathon pace.", p.LongRunMiles, p.MPSegmentMiles)
		workoutType = domain.WorkoutTypeMarathonPace
	}
	pace := paces.EasySecPerMile
	if p.MPSegmentMiles > 0 {
		pace = paces.MarathonSecPerMile
	}
	return &domain.PlannedWorkout{
		WorkoutType:       workoutType,
		TargetMiles:       p.LongRunMiles,
		TargetPaceSecMile: pace,
		Description:       desc,
	}
}

func qualityWorkout(p WeekPrescription, sel Selection, paces domain.PaceTable) *domain.PlannedWorkout {
	return &domain.PlannedWorkout{
		WorkoutType:       "quality",
		TargetMiles:       roundHalf(p.QualityMiles),
		TargetPaceSecMile: paces.ThresholdSecPerMile,
		TemplateID:        sel.Template.ID,
		Description: fmt.Sprintf("%s: %s (%s). %s",
			sel.Template.Name, sel.Step.Key, sel.Step.Structure, sel.Step.DescriptionTemplate),
	}
}

func easyWeekdays(pattern domain.TrainingPattern, taken map[time.Weekday]*domain.PlannedWorkout) []time.Weekday {
	rest := make(map[time.Weekday]bool)
	for _, d := range pattern.RestDays {
		rest[d] = true
	}
	var out []time.Weekday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if _, busy := taken[wd]; !busy && !rest[wd] {
			out = append(out, wd)
		}
	}
	return out
}

// dateFor resolves a weekday within the week starting at weekStart.
func dateFor(weekStart time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) - int(weekStart.Weekday()) + 7) % 7
	return weekStart.AddDate(0, 0, offset)
}

func racePace(d domain.RaceDistance, paces domain.PaceTable) float64 {
	switch d {
	case domain.DistanceMarathon:
		return paces.MarathonSecPerMile
	case domain.DistanceHalf:
		return (paces.MarathonSecPerMile + paces.ThresholdSecPerMile) / 2
	default:
		return paces.ThresholdSecPerMile
	}
}

func describeEasy(theme domain.WeekTheme, miles float64) string {
	if theme == domain.ThemeRebuildStrides {
		return fmt.Sprintf("%.1f mi easy, finish with 6x20s strides.", miles)
	}
	return fmt.Sprintf("%.1f mi easy. Conversational effort.", miles)
}

// buildSummary assembles the plan-level metadata document.
func buildSummary(req PlanRequest, generationID string, bank domain.FitnessBank, weeks []domain.ThemedWeek, prescriptions []WeekPrescription, paces domain.PaceTable) domain.TrainingPlan {
	var totalMiles, totalTSS float64
	for _, p := range prescriptions {
		totalMiles += p.TotalMiles
		totalTSS += p.TotalTSS
	}

	notes := personalizationNotes(bank)

	return domain.TrainingPlan{
		AthleteID:      req.AthleteID,
		GenerationID:   generationID,
		Name:           fmt.Sprintf("%s build: %d weeks", req.Race.Distance, len(weeks)),
		Race:           req.Race,
		TuneUps:        req.TuneUps,
		StartDate:      req.StartDate,
		Weeks:          len(weeks),
		ProjectedMiles: math.Round(totalMiles),
		ProjectedTSS:   math.Round(totalTSS),
		Paces:          paces,
		Confidence:     bank.Data,
		Notes:          notes,
		IsActive:       true,
	}
}

func personalizationNotes(bank domain.FitnessBank) []string {
	var notes []string
	switch bank.Constraint {
	case domain.ConstraintInjury:
		notes = append(notes, "Your recent volume suggests you're coming back from an injury; the first weeks rebuild gently before any hard running.")
	case domain.ConstraintIllness:
		notes = append(notes, "Looks like a recent interruption; the plan eases back in before building.")
	case domain.ConstraintLife:
		notes = append(notes, "Training has been lighter lately, so the plan starts conservatively and rebuilds volume first.")
	}
	if bank.Data == domain.DataDefaulted {
		notes = append(notes, "We have very little training history for you yet; this plan uses conservative defaults and will sharpen as you log more running.")
	}
	if bank.TauCalibrated {
		notes = append(notes, "Your recovery profile was calibrated from your race history.")
	}
	return notes
}
