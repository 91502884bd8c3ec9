package middleware

import (
	"researchhub/internal/auth"

	"github.com/labstack/echo/v4"
)

// RequireRoles allows callers whose token role is one of roles.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := IdentityFrom(c)
			if err := auth.RequireAnyRole(id, roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequirePermission checks the caller's current permissions, not the token claims.
func RequirePermission(resolver auth.PermissionResolver, perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := IdentityFrom(c)
			if err := auth.RequireCapability(c.Request().Context(), id, perm, resolver); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// HasPermission reports whether the caller holds perm. Resolution errors count as no.
func HasPermission(c echo.Context, resolver auth.PermissionResolver, perm string) bool {
	id, ok := IdentityFrom(c)
	if !ok {
		return false
	}
	return auth.RequireCapability(c.Request().Context(), id, perm, resolver) == nil
}
