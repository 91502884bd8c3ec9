package routes

import (
	"researchhub/internal/api/middleware"
	"researchhub/internal/handlers"

	"github.com/labstack/echo/v4"
)

func SetupAuthRoutes(base *echo.Group, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Auth, d.LoginThrottle)

	// Public routes (no auth required)
	auth := base.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Current user, accessible to any authenticated user
	users := base.Group("/users", middleware.Authenticate(d.Tokens))
	users.GET("/me", authHandler.GetMe)
}
