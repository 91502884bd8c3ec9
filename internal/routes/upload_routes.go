package routes

import (
	"researchhub/internal/handlers"
	"researchhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func SetupUploadRoutes(api *echo.Group, d Deps) {
	log := logger.New("upload_routes")

	uploadHandler := handlers.NewUploadHandler(d.Research, d.RBAC)

	api.POST("/research/:id/attachment", uploadHandler.UploadAttachment, middleware.BodyLimit("25M"))

	if handlers.GetAttachmentStorage() == nil {
		log.Warn("Attachment storage not configured, uploads will be rejected")
		return
	}
	log.Success("Upload routes initialized successfully")
}
