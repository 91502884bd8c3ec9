package handlers

import (
	"net/http"
	"strconv"

	"researchhub/internal/api/middleware"
	"researchhub/internal/auth"
	"researchhub/internal/models"
	"researchhub/internal/services"

	"github.com/labstack/echo/v4"
)

type RBACHandler struct {
	rbac *services.RBACService
}

func NewRBACHandler(rbac *services.RBACService) *RBACHandler {
	return &RBACHandler{rbac: rbac}
}

type BindRoleRequest struct {
	RoleCode string `json:"role_code" validate:"required,code"`
}

type ReplaceRolesRequest struct {
	Roles []string `json:"roles" validate:"required,dive,code"`
}

type GrantPermissionRequest struct {
	PermissionCode string `json:"permission_code" validate:"required,code"`
}

func userIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &services.FieldError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

// selfOrManager lets users read their own grants and rbac managers read anyone's.
func (h *RBACHandler) selfOrManager(c echo.Context, userID uint64) error {
	if middleware.GetUserID(c) == userID || middleware.HasPermission(c, h.rbac, models.PermRBACManage) {
		return nil
	}
	return auth.ErrForbidden
}

// UserRoles lists the roles bound to a user in priority order.
// @Router /api/v1/rbac/users/{id}/roles [get]
func (h *RBACHandler) UserRoles(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	if err := h.selfOrManager(c, userID); err != nil {
		return err
	}
	roles, err := h.rbac.EffectiveRoles(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

// UserPermissions lists the union of permissions across a user's roles.
// @Router /api/v1/rbac/users/{id}/permissions [get]
func (h *RBACHandler) UserPermissions(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	if err := h.selfOrManager(c, userID); err != nil {
		return err
	}
	perms, err := h.rbac.EffectivePermissions(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perms)
}

// BindRole adds one role to a user.
// @Router /api/v1/rbac/users/{id}/roles [post]
func (h *RBACHandler) BindRole(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}
	var req BindRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.rbac.BindRoleToUser(c.Request().Context(), actor, userID, req.RoleCode); err != nil {
		return err
	}
	return h.UserRoles(c)
}

// ReplaceRoles sets the exact role list of a user.
// @Router /api/v1/rbac/users/{id}/roles [put]
func (h *RBACHandler) ReplaceRoles(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}
	var req ReplaceRolesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	roles, err := h.rbac.ReplaceRolesOfUser(c.Request().Context(), actor, userID, req.Roles)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

// RolePermissions lists what a role grants.
// @Router /api/v1/rbac/roles/{code}/permissions [get]
func (h *RBACHandler) RolePermissions(c echo.Context) error {
	perms, err := h.rbac.RolePermissions(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perms)
}

// GrantPermission grants a permission to a role. Granting twice is a no-op.
// @Router /api/v1/rbac/roles/{code}/permissions [post]
func (h *RBACHandler) GrantPermission(c echo.Context) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}
	var req GrantPermissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.rbac.GrantPermissionToRole(c.Request().Context(), actor, c.Param("code"), req.PermissionCode); err != nil {
		return err
	}
	return h.RolePermissions(c)
}
