package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-advanced-admin/admin"
	admingorm "github.com/go-advanced-admin/orm-gorm"
	adminecho "github.com/go-advanced-admin/web-echo"
	"golang.org/x/time/rate"

	"researchhub/internal/api/middleware"
	"researchhub/internal/api/validator"
	"researchhub/internal/config"
	"researchhub/internal/handlers"
	"researchhub/internal/metrics"
	"researchhub/internal/models"
	"researchhub/internal/routes"

	console "researchhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config
	db     *gorm.DB
	deps   routes.Deps
}

var log = console.New("API-Server")

// NewServer seeds the RBAC catalog, installs the middleware stack and registers every route.
func NewServer(cfg *config.Config, db *gorm.DB, deps routes.Deps) (*Server, error) {
	e := echo.New()
	e.HideBanner = true

	e.Validator = validator.NewValidator()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Secure())
	e.Use(metrics.Middleware())
	if cfg.Server.RequestTimeout > 0 {
		e.Use(echomiddleware.ContextTimeoutWithConfig(echomiddleware.ContextTimeoutConfig{
			Timeout: cfg.Server.RequestTimeout,
		}))
	}
	e.Use(echomiddleware.GzipWithConfig(echomiddleware.GzipConfig{
		Level: 5,
	}))
	if cfg.Server.RateLimit > 0 {
		e.Use(echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	}

	s := &Server{
		echo:   e,
		config: cfg,
		db:     db,
		deps:   deps,
	}

	if err := models.SeedRBAC(db); err != nil {
		return nil, log.Error("Failed to seed roles and permissions", err)
	}
	log.Success("Successfully seeded roles and permissions")

	switch err := models.CreateSysAdminFromEnv(db, cfg); {
	case errors.Is(err, models.ErrAdminNotConfigured):
		log.Warn("No system administrator exists and SYS_ADMIN_USERNAME/SYS_ADMIN_PASSWORD are not set")
	case err != nil:
		log.Warn("Failed to create system administrator: %v", err)
	}

	if cfg.Admin.PanelEnabled {
		if err := s.mountAdminPanel(); err != nil {
			return nil, err
		}
	}

	s.registerRoutes()
	return s, nil
}

// mountAdminPanel serves the admin panel to authenticated system administrators.
func (s *Server) mountAdminPanel() error {
	gormIntegrator := admingorm.NewIntegrator(s.db)
	echoIntegrator := adminecho.NewIntegrator(s.echo.Group("", middleware.Authenticate(s.deps.Tokens)))

	permissionChecker := func(
		request admin.PermissionRequest, ctx interface{},
	) (bool, error) {
		c, ok := ctx.(echo.Context)
		if !ok {
			return false, nil
		}
		return middleware.GetUserRole(c) == models.RoleSysAdmin, nil
	}

	adminPanel, err := admin.NewPanel(
		gormIntegrator, echoIntegrator, permissionChecker, nil,
	)
	if err != nil {
		return log.Error("Failed to create admin panel", err)
	}

	app, err := adminPanel.RegisterApp(
		"ResearchHub",
		"ResearchHub Admin Panel",
		nil,
	)
	if err != nil {
		return log.Error("Failed to register admin app", err)
	}
	for _, model := range []interface{}{&models.User{}, &models.Role{}, &models.Permission{}, &models.ResearchItem{}, &models.Notification{}} {
		if _, err := app.RegisterModel(model, nil); err != nil {
			return log.Error("Failed to register %T with admin panel", err, model)
		}
	}
	return nil
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	status := "healthy"
	code := http.StatusOK
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":  status,
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}
