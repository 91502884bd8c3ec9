package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"researchhub/internal/api/middleware"
	"researchhub/internal/auth"
	"researchhub/internal/models"
	"researchhub/internal/services"
	"researchhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

type ResearchHandler struct {
	research    *services.ResearchService
	permissions auth.PermissionResolver
	log         *logger.Logger
}

func NewResearchHandler(research *services.ResearchService, permissions auth.PermissionResolver) *ResearchHandler {
	return &ResearchHandler{research: research, permissions: permissions, log: logger.New("ResearchHandler")}
}

type CreateResearchRequest struct {
	SubtypeID     uint64          `json:"subtype_id" validate:"required"`
	Title         string          `json:"title" validate:"required,max=255"`
	Content       json.RawMessage `json:"content_json"`
	Status        string          `json:"status" validate:"omitempty,research_status"`
	FileURL       string          `json:"file_url" validate:"omitempty,max=255"`
	Collaborators []string        `json:"collaborators" validate:"omitempty,dive,max=50"`
}

type UpdateStatusRequest struct {
	Status  string  `json:"status" validate:"required,research_status"`
	Remarks *string `json:"remarks"`
}

type BatchStatusRequest struct {
	IDs     []uint64 `json:"ids" validate:"required,min=1,dive,gt=0"`
	Status  string   `json:"status" validate:"required,research_status"`
	Remarks *string  `json:"remarks"`
}

func (h *ResearchHandler) itemID(c echo.Context) (uint64, error) {
	return services.ParseItemID(c.Param("id"))
}

// Create stores a new research item owned by the caller.
// @Router /api/v1/research [post]
func (h *ResearchHandler) Create(c echo.Context) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}

	var req CreateResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	item, err := h.research.Create(c.Request().Context(), actor, services.CreateResearchInput{
		SubtypeID:     req.SubtypeID,
		Title:         req.Title,
		Content:       req.Content,
		Status:        req.Status,
		FileURL:       req.FileURL,
		Collaborators: req.Collaborators,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateStatus moves one item to a new status.
// @Router /api/v1/research/{id}/status [put]
func (h *ResearchHandler) UpdateStatus(c echo.Context) error {
	id, err := h.itemID(c)
	if err != nil {
		return err
	}
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	item, err := h.research.TransitionStatus(c.Request().Context(), actor, id, req.Status, req.Remarks)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// BatchUpdateStatus applies one status to many items.
// @Router /api/v1/research/batch/status [put]
func (h *ResearchHandler) BatchUpdateStatus(c echo.Context) error {
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}

	var req BatchStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	affected, err := h.research.BatchTransitionStatus(c.Request().Context(), actor, req.IDs, req.Status, req.Remarks)
	if err != nil {
		return err
	}
	status, _ := models.ParseResearchStatus(req.Status)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"affected": affected,
		"status":   status,
	})
}

// Get returns one item to its owner or to a reader of all items.
// @Router /api/v1/research/{id} [get]
func (h *ResearchHandler) Get(c echo.Context) error {
	id, err := h.itemID(c)
	if err != nil {
		return err
	}
	item, err := h.research.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if item.UserID != middleware.GetUserID(c) && !middleware.HasPermission(c, h.permissions, models.PermResearchReadAll) {
		return auth.ErrForbidden
	}
	return c.JSON(http.StatusOK, item)
}

// List returns every item, filtered by status, user_id or subtype_id.
// @Router /api/v1/research [get]
func (h *ResearchHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filters := map[string]interface{}{}
	if status := c.QueryParam("status"); status != "" {
		parsed, ok := models.ParseResearchStatus(status)
		if !ok {
			return &services.FieldError{Field: "status", Reason: "is not a known status"}
		}
		filters["status"] = parsed
	}
	for _, key := range []string{"user_id", "subtype_id"} {
		if raw := c.QueryParam(key); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return &services.FieldError{Field: key, Reason: "must be a positive integer"}
			}
			filters[key] = v
		}
	}

	items, total, err := h.research.List(c.Request().Context(), services.ListOptions{
		Page:    page,
		Limit:   limit,
		Filters: filters,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// ListMine returns the caller's own items.
// @Router /api/v1/research/mine [get]
func (h *ResearchHandler) ListMine(c echo.Context) error {
	items, err := h.research.ListByOwner(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// ListPending returns the review queue.
// @Router /api/v1/research/pending [get]
func (h *ResearchHandler) ListPending(c echo.Context) error {
	items, err := h.research.ListPending(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// Delete removes an item owned by the caller; reviewers may delete any item.
// @Router /api/v1/research/{id} [delete]
func (h *ResearchHandler) Delete(c echo.Context) error {
	id, err := h.itemID(c)
	if err != nil {
		return err
	}
	actor, err := middleware.Actor(c)
	if err != nil {
		return err
	}

	canDeleteAny := middleware.HasPermission(c, h.permissions, models.PermResearchReview)
	if err := h.research.Delete(c.Request().Context(), actor, id, canDeleteAny); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
