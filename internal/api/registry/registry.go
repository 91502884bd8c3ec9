package registry

import (
	"github.com/labstack/echo/v4"

	"researchhub/internal/api/controllers"
	"researchhub/internal/api/middleware"
	"researchhub/internal/auth"
	"researchhub/internal/models"
	"researchhub/internal/services"

	"gorm.io/gorm"
)

// RegisterReadRoutes exposes read-only listings of the audit trail and the RBAC catalog.
func RegisterReadRoutes(g *echo.Group, db *gorm.DB, permissions auth.PermissionResolver) {
	// Audit logs
	auditService := services.NewReadService(db, models.AuditLog{}, "user_id", "action", "target_type", "target_id")
	auditController := controllers.NewReadController(auditService, "created_at DESC, id DESC")
	auditController.RegisterRoutes(g, "/audit-logs", middleware.RequirePermission(permissions, models.PermAuditRead))

	// Roles and permissions
	manage := middleware.RequirePermission(permissions, models.PermRBACManage)

	roleService := services.NewReadService(db, models.Role{}, "code", "is_system")
	controllers.NewReadController(roleService, "id ASC").RegisterRoutes(g, "/roles", manage)

	permissionService := services.NewReadService(db, models.Permission{}, "code", "module")
	controllers.NewReadController(permissionService, "module ASC, code ASC").RegisterRoutes(g, "/permissions", manage)
}
