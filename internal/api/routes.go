package api

import (
	_ "researchhub/docs/swagger"
	"researchhub/internal/api/middleware"
	"researchhub/internal/api/registry"
	"researchhub/internal/metrics"
	"researchhub/internal/routes"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	base := s.echo.Group("/api/v1")
	routes.SetupAuthRoutes(base, s.deps)

	// Everything below requires a valid token
	api := base.Group("", middleware.Authenticate(s.deps.Tokens))

	registry.RegisterReadRoutes(api, s.db, s.deps.RBAC)

	routes.SetupResearchRoutes(api, s.deps)
	routes.SetupRBACRoutes(api, s.deps)
	routes.SetupAuditRoutes(api, s.deps)
	routes.SetupNotificationRoutes(api, s.deps)
	routes.SetupUploadRoutes(api, s.deps)
}
