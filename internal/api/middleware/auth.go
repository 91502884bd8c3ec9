package middleware

import (
	"researchhub/internal/auth"
	"researchhub/internal/services"
	"researchhub/internal/utils"
	"researchhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

var log = logger.New("auth_middleware")

const identityKey = "identity"

// Authenticate verifies the bearer token and stores the decoded identity on the
// context. Any failure is reported as auth.ErrUnauthenticated.
func Authenticate(verifier auth.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := auth.RequireAuthenticated(verifier, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				log.Debug("Rejected token on %s %s: %v", c.Request().Method, c.Path(), err)
				return auth.ErrUnauthenticated
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

func SetIdentity(c echo.Context, id auth.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the identity set by Authenticate.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	if !ok || id.IsZero() {
		return auth.Identity{}, false
	}
	return id, true
}

// GetUserID Helper functions to get values from context
func GetUserID(c echo.Context) uint64 {
	id, _ := IdentityFrom(c)
	return id.UserID
}

func GetUserRole(c echo.Context) string {
	id, _ := IdentityFrom(c)
	return id.Role
}

// Actor describes the caller for audited mutations.
func Actor(c echo.Context) (services.Actor, error) {
	id, ok := IdentityFrom(c)
	if !ok {
		return services.Actor{}, auth.ErrUnauthenticated
	}
	return services.ActorFrom(id, utils.GetIPAddress(c.Request())), nil
}
