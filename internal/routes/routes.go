package routes

import (
	"researchhub/internal/auth"
	"researchhub/internal/handlers"
	"researchhub/internal/services"
)

// Deps are the services the HTTP routes call into.
type Deps struct {
	Tokens        auth.TokenVerifier
	Auth          *services.AuthService
	RBAC          *services.RBACService
	Research      *services.ResearchService
	Audit         *services.AuditQueryService
	Notifications *services.NotificationService
	LoginThrottle handlers.LoginThrottle
}
