package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"researchhub/internal/services"

	"github.com/labstack/echo/v4"
)

type AuditHandler struct {
	audit *services.AuditQueryService
}

func NewAuditHandler(audit *services.AuditQueryService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ByTarget returns entries for one target id, including batch entries that listed it.
// @Router /api/v1/audit-logs/target/{id} [get]
func (h *AuditHandler) ByTarget(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return &services.FieldError{Field: "id", Reason: "must be a positive integer"}
	}
	logs, err := h.audit.ByTargetID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

// @Router /api/v1/audit-logs/type/{type} [get]
func (h *AuditHandler) ByTargetType(c echo.Context) error {
	logs, err := h.audit.ByTargetType(c.Request().Context(), strings.TrimSpace(c.Param("type")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

// @Router /api/v1/audit-logs/action/{action} [get]
func (h *AuditHandler) ByAction(c echo.Context) error {
	logs, err := h.audit.ByAction(c.Request().Context(), strings.ToUpper(strings.TrimSpace(c.Param("action"))))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}
