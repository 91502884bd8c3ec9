package routes

import (
	"researchhub/internal/handlers"

	"github.com/labstack/echo/v4"
)

func SetupNotificationRoutes(api *echo.Group, d Deps) {
	h := handlers.NewNotificationHandler(d.Notifications)

	notifications := api.Group("/notifications")
	notifications.GET("", h.List)
	notifications.PUT("/:id/read", h.MarkRead)
}
