package routes

import (
	"researchhub/internal/api/middleware"
	"researchhub/internal/handlers"
	"researchhub/internal/models"

	"github.com/labstack/echo/v4"
)

// SetupResearchRoutes expects api to be authenticated already.
func SetupResearchRoutes(api *echo.Group, d Deps) {
	h := handlers.NewResearchHandler(d.Research, d.RBAC)
	review := middleware.RequirePermission(d.RBAC, models.PermResearchReview)

	research := api.Group("/research")
	research.POST("", h.Create, middleware.RequirePermission(d.RBAC, models.PermResearchCreate))
	research.GET("", h.List, middleware.RequirePermission(d.RBAC, models.PermResearchReadAll))
	research.GET("/mine", h.ListMine)
	research.GET("/pending", h.ListPending, review)

	// Static batch path before the :id routes; ids are also checked to be numeric.
	research.PUT("/batch/status", h.BatchUpdateStatus, review)
	research.PUT("/:id/status", h.UpdateStatus, review)
	research.GET("/:id", h.Get)
	research.DELETE("/:id", h.Delete)
}
