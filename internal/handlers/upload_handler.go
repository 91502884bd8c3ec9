package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"researchhub/internal/api/middleware"
	"researchhub/internal/auth"
	"researchhub/internal/models"
	"researchhub/internal/services"
	"researchhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

// MaxAttachmentSize bounds a single uploaded file.
const MaxAttachmentSize = 20 << 20

type UploadHandler struct {
	research    *services.ResearchService
	permissions auth.PermissionResolver
	log         *logger.Logger
}

func NewUploadHandler(research *services.ResearchService, permissions auth.PermissionResolver) *UploadHandler {
	return &UploadHandler{
		research:    research,
		permissions: permissions,
		log:         logger.New("upload_handler"),
	}
}

// UploadAttachment stores a file for a research item and records its object key.
// @Accept multipart/form-data
// @Param file formData file true "File to upload"
// @Router /api/v1/research/{id}/attachment [post]
func (h *UploadHandler) UploadAttachment(c echo.Context) error {
	itemID, err := services.ParseItemID(c.Param("id"))
	if err != nil {
		return err
	}
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}

	contentType := c.Request().Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return echo.NewHTTPError(http.StatusBadRequest, "Content-Type must be multipart/form-data")
	}

	storage := GetAttachmentStorage()
	if storage == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "attachment storage is not configured")
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.log.Debug("No file in upload for item %d: %v", itemID, err)
		return &services.FieldError{Field: "file", Reason: "is required"}
	}
	if file.Size > MaxAttachmentSize {
		return &services.FieldError{Field: "file", Reason: "is too large"}
	}

	src, err := file.Open()
	if err != nil {
		return h.log.Error("Failed to open uploaded file", err)
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, MaxAttachmentSize+1))
	if err != nil {
		return h.log.Error("Failed to read uploaded file", err)
	}

	ctx := c.Request().Context()
	canEditAny := middleware.HasPermission(c, h.permissions, models.PermResearchReview)

	// Check ownership before paying for the upload.
	item, err := h.research.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if !canEditAny && item.UserID != actor.UserID {
		return auth.ErrForbidden
	}

	key, err := storage.UploadAttachment(ctx, itemID, content, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		return h.log.Error("Failed to upload attachment for item %d", err, itemID)
	}

	item, err = h.research.AttachFile(ctx, actor, itemID, key, canEditAny)
	if err != nil {
		return err
	}

	h.log.Success("Attachment stored for item %d: %s", itemID, key)

	signed, err := storage.GetSignedURL(ctx, key, time.Hour)
	if err != nil {
		h.log.Warn("Failed to sign attachment %s: %v", key, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"item": item,
		"key":  key,
		"url":  signed,
	})
}
