package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/engine"
	"strideiq/plan-engine/internal/service"
)

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService service.PlanService

	// Per-athlete generation locks. A regeneration replaces the athlete's
	// calendar wholesale, so two concurrent generations for the same
	// athlete must serialize or the audit trail and calendar can disagree.
	genLocks sync.Map // athleteID hex -> *sync.Mutex
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs for API (Data Transfer Objects) ---

type RaceRequest struct {
	Distance string    `json:"distance" binding:"required,oneof=5k 10k half_marathon marathon"`
	Date     time.Time `json:"date" binding:"required"`
}

type TuneUpRequest struct {
	Distance string    `json:"distance" binding:"required,oneof=5k 10k half_marathon marathon"`
	Date     time.Time `json:"date" binding:"required"`
	Purpose  string    `json:"purpose" binding:"omitempty"`
}

// GeneratePlanRequest defines the expected JSON for one generation call.
type GeneratePlanRequest struct {
	Race             RaceRequest     `json:"race" binding:"required"`
	TuneUps          []TuneUpRequest `json:"tuneUps" binding:"omitempty,dive"`
	StartDate        time.Time       `json:"startDate" binding:"omitempty"` // zero = next Monday
	TimeAvailableMin int             `json:"timeAvailableMin" binding:"omitempty,min=0"`
	Facilities       []string        `json:"facilities" binding:"omitempty"`
}

// PlannedWorkoutResponse is the DTO for one calendar day.
type PlannedWorkoutResponse struct {
	ID                string    `json:"id"`
	Date              time.Time `json:"date"`
	WeekNumber        int       `json:"weekNumber"`
	Theme             string    `json:"theme"`
	WorkoutType       string    `json:"workoutType"`
	TargetMiles       float64   `json:"targetMiles,omitempty"`
	TargetDurationMin float64   `json:"targetDurationMin,omitempty"`
	TargetPaceSecMile float64   `json:"targetPaceSecMile,omitempty"`
	TemplateID        string    `json:"templateId,omitempty"`
	Description       string    `json:"description,omitempty"`
}

// TrainingPlanResponse is the DTO for the plan summary.
type TrainingPlanResponse struct {
	ID             string              `json:"id"`
	GenerationID   string              `json:"generationId"`
	Name           string              `json:"name"`
	Race           domain.GoalRace     `json:"race"`
	TuneUps        []domain.TuneUpRace `json:"tuneUps,omitempty"`
	StartDate      time.Time           `json:"startDate"`
	Weeks          int                 `json:"weeks"`
	ProjectedMiles float64             `json:"projectedMiles"`
	ProjectedTSS   float64             `json:"projectedTss"`
	Paces          domain.PaceTable    `json:"paces"`
	Confidence     string              `json:"confidence"`
	Notes          []string            `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// PlanWithWorkoutsResponse bundles the summary with the full calendar.
type PlanWithWorkoutsResponse struct {
	Plan     TrainingPlanResponse     `json:"plan"`
	Workouts []PlannedWorkoutResponse `json:"workouts"`
}

func MapPlanToResponse(plan *domain.TrainingPlan) TrainingPlanResponse {
	if plan == nil {
		return TrainingPlanResponse{}
	}
	return TrainingPlanResponse{
		ID:             plan.ID.Hex(),
		GenerationID:   plan.GenerationID,
		Name:           plan.Name,
		Race:           plan.Race,
		TuneUps:        plan.TuneUps,
		StartDate:      plan.StartDate,
		Weeks:          plan.Weeks,
		ProjectedMiles: plan.ProjectedMiles,
		ProjectedTSS:   plan.ProjectedTSS,
		Paces:          plan.Paces,
		Confidence:     string(plan.Confidence),
		Notes:          plan.Notes,
		CreatedAt:      plan.CreatedAt,
	}
}

func MapWorkoutsToResponse(workouts []domain.PlannedWorkout) []PlannedWorkoutResponse {
	responses := make([]PlannedWorkoutResponse, len(workouts))
	for i, w := range workouts {
		responses[i] = PlannedWorkoutResponse{
			ID:                w.ID.Hex(),
			Date:              w.Date,
			WeekNumber:        w.WeekNumber,
			Theme:             string(w.Theme),
			WorkoutType:       w.WorkoutType,
			TargetMiles:       w.TargetMiles,
			TargetDurationMin: w.TargetDurationMin,
			TargetPaceSecMile: w.TargetPaceSecMile,
			TemplateID:        w.TemplateID,
			Description:       w.Description,
		}
	}
	return responses
}

func mapResult(result *service.GenerationResult) PlanWithWorkoutsResponse {
	return PlanWithWorkoutsResponse{
		Plan:     MapPlanToResponse(&result.Plan),
		Workouts: MapWorkoutsToResponse(result.Workouts),
	}
}

// --- Handler Methods ---

// GeneratePlan godoc
// @Summary Generate a training plan
// @Description Runs one full plan generation for the authenticated athlete and replaces any existing plan.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GeneratePlanRequest true "Goal race and constraints"
// @Success 201 {object} PlanWithWorkoutsResponse "Plan generated"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Plan generation disabled for this athlete"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /athlete/plans/generate [post]
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	athleteID, ok := athleteIDFromContext(c)
	if !ok {
		return
	}

	tuneUps := make([]domain.TuneUpRace, len(req.TuneUps))
	for i, t := range req.TuneUps {
		tuneUps[i] = domain.TuneUpRace{
			Distance: domain.RaceDistance(t.Distance),
			Date:     t.Date,
			Purpose:  t.Purpose,
		}
	}

	lock := h.lockFor(athleteID)
	lock.Lock()
	defer lock.Unlock()

	result, err := h.planService.Generate(c.Request.Context(), athleteID, service.GenerationRequest{
		Race: domain.GoalRace{
			Distance: domain.RaceDistance(req.Race.Distance),
			Date:     req.Race.Date,
		},
		TuneUps:          tuneUps,
		StartDate:        req.StartDate,
		TimeAvailableMin: req.TimeAvailableMin,
		Facilities:       req.Facilities,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGenerationDisabled):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, engine.ErrRaceNotInFuture),
			errors.Is(err, engine.ErrUnknownDistance),
			errors.Is(err, engine.ErrTuneUpOutOfRange):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate plan.")
		}
		return
	}

	c.JSON(http.StatusCreated, mapResult(result))
}

// GetCurrentPlan godoc
// @Summary Get the active training plan
// @Description Returns the athlete's active plan summary and full workout calendar.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PlanWithWorkoutsResponse "Active plan"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "No active plan"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /athlete/plans/current [get]
func (h *PlanHandler) GetCurrentPlan(c *gin.Context) {
	athleteID, ok := athleteIDFromContext(c)
	if !ok {
		return
	}

	result, err := h.planService.GetActivePlan(c.Request.Context(), athleteID)
	if err != nil {
		if errors.Is(err, service.ErrNoActivePlan) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve plan.")
		}
		return
	}

	c.JSON(http.StatusOK, mapResult(result))
}

// GetPlanExportURL godoc
// @Summary Get a plan export download URL
// @Description Returns a short-lived presigned URL for downloading the archived plan snapshot.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "Download URL"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "No active plan"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /athlete/plans/export-url [get]
func (h *PlanHandler) GetPlanExportURL(c *gin.Context) {
	athleteID, ok := athleteIDFromContext(c)
	if !ok {
		return
	}

	url, err := h.planService.ExportURL(c.Request.Context(), athleteID)
	if err != nil {
		if errors.Is(err, service.ErrNoActivePlan) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to generate export URL.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// GetAuditTrail godoc
// @Summary Get the selection audit trail for a generation
// @Description Returns every workout selection audit event recorded during one generation. Coach only.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param generationId path string true "Generation ID"
// @Success 200 {array} domain.WorkoutSelectionAuditEvent "Audit events"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not a coach)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /coach/generations/{generationId}/audit [get]
func (h *PlanHandler) GetAuditTrail(c *gin.Context) {
	events, err := h.planService.GetAuditTrail(c.Request.Context(), c.Param("generationId"))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve audit trail.")
		return
	}

	if events == nil {
		c.JSON(http.StatusOK, []domain.WorkoutSelectionAuditEvent{})
		return
	}
	c.JSON(http.StatusOK, events)
}

// --- Helpers ---

func (h *PlanHandler) lockFor(athleteID primitive.ObjectID) *sync.Mutex {
	actual, _ := h.genLocks.LoadOrStore(athleteID.Hex(), &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// athleteIDFromContext returns the authenticated athlete's id, writing
// the error response itself on failure. AuthMiddleware already parsed
// and validated it.
func athleteIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	athleteID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return primitive.NilObjectID, false
	}
	return athleteID, true
}
