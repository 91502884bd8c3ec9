package routes

import (
	"researchhub/internal/api/middleware"
	"researchhub/internal/handlers"
	"researchhub/internal/models"

	"github.com/labstack/echo/v4"
)

// SetupRBACRoutes expects api to be authenticated already.
func SetupRBACRoutes(api *echo.Group, d Deps) {
	h := handlers.NewRBACHandler(d.RBAC)
	manage := middleware.RequirePermission(d.RBAC, models.PermRBACManage)

	rbac := api.Group("/rbac")
	// self reads are checked in the handler
	rbac.GET("/users/:id/roles", h.UserRoles)
	rbac.GET("/users/:id/permissions", h.UserPermissions)

	rbac.POST("/users/:id/roles", h.BindRole, manage)
	rbac.PUT("/users/:id/roles", h.ReplaceRoles, manage)
	rbac.GET("/roles/:code/permissions", h.RolePermissions, manage)
	rbac.POST("/roles/:code/permissions", h.GrantPermission, manage)
}
