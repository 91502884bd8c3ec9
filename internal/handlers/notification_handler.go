package handlers

import (
	"net/http"
	"strconv"

	"researchhub/internal/api/middleware"
	"researchhub/internal/services"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the caller's notifications, newest first. ?unread=true hides read ones.
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread"))
	out, err := h.notifications.ListForUser(c.Request().Context(), middleware.GetUserID(c), unreadOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// MarkRead flags one of the caller's notifications as read.
// @Router /api/v1/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return &services.FieldError{Field: "id", Reason: "must be a positive integer"}
	}
	if err := h.notifications.MarkRead(c.Request().Context(), middleware.GetUserID(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
