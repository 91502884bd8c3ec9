package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"researchhub/internal/services"

	"github.com/labstack/echo/v4"
)

// reservedParams are query parameters that never become filters.
var reservedParams = map[string]bool{"page": true, "limit": true, "include": true}

// ReadController exposes a ReadService as GET /path and GET /path/:id.
type ReadController[T any] struct {
	service  services.ReadService[T]
	orderBy  string
	includes map[string]bool
}

// NewReadController creates a read-only controller. Only the listed relations
// may be requested through ?include=.
func NewReadController[T any](service services.ReadService[T], orderBy string, includes ...string) *ReadController[T] {
	allowed := make(map[string]bool, len(includes))
	for _, inc := range includes {
		allowed[inc] = true
	}
	return &ReadController[T]{
		service:  service,
		orderBy:  orderBy,
		includes: allowed,
	}
}

// parseIncludes parses the include query parameter and returns a slice of relationships to preload
func (c *ReadController[T]) parseIncludes(ctx echo.Context) ([]string, error) {
	include := ctx.QueryParam("include")
	if include == "" {
		return nil, nil
	}
	var out []string
	for _, inc := range strings.Split(include, ",") {
		inc = strings.TrimSpace(inc)
		if !c.includes[inc] {
			return nil, &services.FieldError{Field: "include", Reason: inc + " cannot be included"}
		}
		out = append(out, inc)
	}
	return out, nil
}

// filterValue passes integers as numbers so id columns compare natively.
func filterValue(raw string) interface{} {
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

// Get handles retrieval of a single entity
func (c *ReadController[T]) Get(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return &services.FieldError{Field: "id", Reason: "must be a positive integer"}
	}
	includes, err := c.parseIncludes(ctx)
	if err != nil {
		return err
	}
	entity, err := c.service.Get(ctx.Request().Context(), id, includes...)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, entity)
}

// List handles retrieval of multiple entities with pagination and filtering.
// Unknown filter keys are rejected by the service.
func (c *ReadController[T]) List(ctx echo.Context) error {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > services.MaxPageSize {
		limit = services.MaxPageSize
	}

	filters := make(map[string]interface{})
	for key, values := range ctx.QueryParams() {
		if !reservedParams[key] && len(values) > 0 {
			filters[key] = filterValue(values[0])
		}
	}

	includes, err := c.parseIncludes(ctx)
	if err != nil {
		return err
	}

	entities, total, err := c.service.List(ctx.Request().Context(), services.ListOptions{
		Page:     page,
		Limit:    limit,
		Filters:  filters,
		OrderBy:  c.orderBy,
		Includes: includes,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"data":  entities,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// RegisterRoutes registers the read routes for the controller
func (c *ReadController[T]) RegisterRoutes(g *echo.Group, path string, m ...echo.MiddlewareFunc) {
	g.GET(path, c.List, m...)
	g.GET(path+"/:id", c.Get, m...)
}
