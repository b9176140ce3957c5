package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/service"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	planService service.PlanService,
	templateService service.TemplateService,
) {

	authHandler := NewAuthHandler(authService)
	planHandler := NewPlanHandler(planService)
	templateHandler := NewTemplateHandler(templateService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex(), "role": role})
		})

		// --- Template Registry Routes ---
		// Reads are open to any authenticated user; writes are coach only.
		templateGroup := protected.Group("/templates")
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)

			templateGroup.POST("", RoleMiddleware(domain.RoleCoach), templateHandler.CreateTemplate)
			templateGroup.PUT("/:id", RoleMiddleware(domain.RoleCoach), templateHandler.UpdateTemplate)
			templateGroup.DELETE("/:id", RoleMiddleware(domain.RoleCoach), templateHandler.DeleteTemplate)
		}

		// --- Athlete Plan Routes ---
		// All plan operations act on the authenticated athlete's own data;
		// the athlete ID always comes from the token, never from the path.
		athleteGroup := protected.Group("/athlete")
		athleteGroup.Use(RoleMiddleware(domain.RoleAthlete))
		{
			// POST /api/v1/athlete/plans/generate
			athleteGroup.POST("/plans/generate", planHandler.GeneratePlan)
			// GET /api/v1/athlete/plans/current
			athleteGroup.GET("/plans/current", planHandler.GetCurrentPlan)
			// GET /api/v1/athlete/plans/export-url
			athleteGroup.GET("/plans/export-url", planHandler.GetPlanExportURL)
		}

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			// GET /api/v1/coach/generations/{generationId}/audit
			coachGroup.GET("/generations/:generationId/audit", planHandler.GetAuditTrail)
		}
	}
}
