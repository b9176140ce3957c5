package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/service"
)

// TemplateHandler holds the template service dependency.
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// --- DTOs for API (Data Transfer Objects) ---

// TemplateRequest defines the expected JSON for creating or updating a
// workout template. The progression blob is passed through and validated
// by the service against the tagged variant schema.
type TemplateRequest struct {
	ID                 string                     `json:"id" binding:"required"`
	Name               string                     `json:"name" binding:"required"`
	IntensityTier      string                     `json:"intensityTier" binding:"omitempty"`
	PhaseCompatibility []string                   `json:"phaseCompatibility" binding:"required,min=1"`
	Progression        domain.ProgressionLogic    `json:"progression" binding:"required"`
	VarianceTags       []string                   `json:"varianceTags" binding:"omitempty"`
	Constraints        domain.TemplateConstraints `json:"constraints" binding:"omitempty"`
	DontFollow         []string                   `json:"dontFollow" binding:"omitempty"`
}

// TemplateResponse is the DTO for returning template details.
type TemplateResponse struct {
	ID                 string                     `json:"id"`
	Name               string                     `json:"name"`
	IntensityTier      string                     `json:"intensityTier,omitempty"`
	PhaseCompatibility []string                   `json:"phaseCompatibility"`
	Progression        domain.ProgressionLogic    `json:"progression"`
	VarianceTags       []string                   `json:"varianceTags,omitempty"`
	Constraints        domain.TemplateConstraints `json:"constraints"`
	DontFollow         []string                   `json:"dontFollow,omitempty"`
	Version            int                        `json:"version"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
}

func templateFromRequest(req *TemplateRequest) *domain.WorkoutTemplate {
	return &domain.WorkoutTemplate{
		ID:                 req.ID,
		Name:               req.Name,
		IntensityTier:      req.IntensityTier,
		PhaseCompatibility: req.PhaseCompatibility,
		Progression:        req.Progression,
		VarianceTags:       req.VarianceTags,
		Constraints:        req.Constraints,
		DontFollow:         req.DontFollow,
	}
}

// MapTemplateToResponse converts a domain.WorkoutTemplate to TemplateResponse DTO.
func MapTemplateToResponse(t *domain.WorkoutTemplate) TemplateResponse {
	if t == nil {
		return TemplateResponse{}
	}
	return TemplateResponse{
		ID:                 t.ID,
		Name:               t.Name,
		IntensityTier:      t.IntensityTier,
		PhaseCompatibility: t.PhaseCompatibility,
		Progression:        t.Progression,
		VarianceTags:       t.VarianceTags,
		Constraints:        t.Constraints,
		DontFollow:         t.DontFollow,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// MapTemplatesToResponse converts a slice of templates to response DTOs.
func MapTemplatesToResponse(templates []domain.WorkoutTemplate) []TemplateResponse {
	responses := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		responses[i] = MapTemplateToResponse(&t)
	}
	return responses
}

// --- Handler Methods ---

// CreateTemplate godoc
// @Summary Create a workout template
// @Description Adds a new template to the quality workout registry. Coach only.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body TemplateRequest true "Template details"
// @Success 201 {object} TemplateResponse "Template created"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not a coach)"
// @Failure 409 {object} gin.H "Template id already exists"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	template := templateFromRequest(&req)
	if err := h.templateService.CreateTemplate(c.Request.Context(), template); err != nil {
		switch {
		case errors.Is(err, service.ErrTemplateExists):
			abortWithError(c, http.StatusConflict, err.Error())
		case isTemplateValidationError(err):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create template.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapTemplateToResponse(template))
}

// ListTemplates godoc
// @Summary List workout templates
// @Description Retrieves the full quality workout registry.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TemplateResponse "List of templates"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateService.ListTemplates(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve templates.")
		return
	}

	if templates == nil {
		c.JSON(http.StatusOK, []TemplateResponse{})
		return
	}

	c.JSON(http.StatusOK, MapTemplatesToResponse(templates))
}

// GetTemplate godoc
// @Summary Get one workout template
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} TemplateResponse "Template"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Template not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	template, err := h.templateService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve template.")
		}
		return
	}

	c.JSON(http.StatusOK, MapTemplateToResponse(template))
}

// UpdateTemplate godoc
// @Summary Update a workout template
// @Description Replaces a registry entry and bumps its version. Coach only.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param template body TemplateRequest true "Template details"
// @Success 200 {object} TemplateResponse "Template updated"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not a coach)"
// @Failure 404 {object} gin.H "Template not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	// Path param wins over any id in the body.
	req.ID = c.Param("id")

	template := templateFromRequest(&req)
	if err := h.templateService.UpdateTemplate(c.Request.Context(), template); err != nil {
		switch {
		case errors.Is(err, service.ErrTemplateNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case isTemplateValidationError(err):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update template.")
		}
		return
	}

	c.JSON(http.StatusOK, MapTemplateToResponse(template))
}

// DeleteTemplate godoc
// @Summary Delete a workout template
// @Description Removes a registry entry. Coach only. Plans already generated keep their audit rows.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 204 "Template deleted"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not a coach)"
// @Failure 404 {object} gin.H "Template not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete template.")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func isTemplateValidationError(err error) bool {
	return errors.Is(err, service.ErrTemplateValidation) ||
		errors.Is(err, domain.ErrProgressionType) ||
		errors.Is(err, domain.ErrProgressionEmpty) ||
		errors.Is(err, domain.ErrProgressionStep)
}
