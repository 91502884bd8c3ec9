package routes

import (
	"researchhub/internal/api/middleware"
	"researchhub/internal/handlers"
	"researchhub/internal/models"

	"github.com/labstack/echo/v4"
)

// SetupAuditRoutes adds the lookup routes; the paged listing lives in the registry.
func SetupAuditRoutes(api *echo.Group, d Deps) {
	h := handlers.NewAuditHandler(d.Audit)

	audit := api.Group("/audit-logs", middleware.RequirePermission(d.RBAC, models.PermAuditRead))
	audit.GET("/target/:id", h.ByTarget)
	audit.GET("/type/:type", h.ByTargetType)
	audit.GET("/action/:action", h.ByAction)
}
