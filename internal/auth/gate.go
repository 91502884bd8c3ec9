package auth

import (
	"context"
	"fmt"
	"strings"
)

// TokenVerifier decodes a bearer token into an Identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// PermissionResolver returns the effective permission codes of a user.
type PermissionResolver interface {
	EffectivePermissionCodes(ctx context.Context, userID uint64) ([]string, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrUnauthenticated
	}
	return parts[1], nil
}

// RequireAuthenticated decodes the Authorization header value.
func RequireAuthenticated(verifier TokenVerifier, header string) (Identity, error) {
	token, err := BearerToken(header)
	if err != nil {
		return Identity{}, err
	}
	return verifier.Verify(token)
}

// RequireAnyRole allows id when its role claim is one of roles.
func RequireAnyRole(id Identity, roles ...string) error {
	if id.IsZero() {
		return ErrUnauthenticated
	}
	for _, role := range roles {
		if id.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// RequireCapability resolves the current permissions of id and checks for perm.
func RequireCapability(ctx context.Context, id Identity, perm string, resolver PermissionResolver) error {
	if id.IsZero() {
		return ErrUnauthenticated
	}
	codes, err := resolver.EffectivePermissionCodes(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("resolve permissions for user %d: %w", id.UserID, err)
	}
	for _, code := range codes {
		if code == perm {
			return nil
		}
	}
	return ErrForbidden
}
