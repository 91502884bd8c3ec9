package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"researchhub/internal/models"
	console "researchhub/internal/utils/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RBACService resolves and edits the user->role->permission graph. There is
// no role inheritance: a user's permissions are the union over the roles
// bound directly to them.
type RBACService struct {
	db       *gorm.DB
	recorder Recorder
	cache    *PermissionCache
	log      *console.Logger
}

func NewRBACService(db *gorm.DB, recorder Recorder, cache *PermissionCache) *RBACService {
	return &RBACService{
		db:       db,
		recorder: recorder,
		cache:    cache,
		log:      console.New("RBAC"),
	}
}

// SortRolesByPriority orders roles sys_admin, research_admin, teacher, then the rest by code.
func SortRolesByPriority(roles []models.Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		pi, pj := models.RolePriority(roles[i].Code), models.RolePriority(roles[j].Code)
		if pi != pj {
			return pi < pj
		}
		return roles[i].Code < roles[j].Code
	})
}

// PrimaryRoleCode picks the role embedded in identity tokens.
func PrimaryRoleCode(roles []models.Role, fallback string) string {
	if len(roles) == 0 {
		return fallback
	}
	sorted := make([]models.Role, len(roles))
	copy(sorted, roles)
	SortRolesByPriority(sorted)
	return sorted[0].Code
}

func codesOf(roles []models.Role) []string {
	codes := make([]string, 0, len(roles))
	for _, r := range roles {
		codes = append(codes, r.Code)
	}
	return codes
}

func effectiveRoles(tx *gorm.DB, userID uint64) ([]models.Role, error) {
	var roles []models.Role
	err := tx.Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	SortRolesByPriority(roles)
	return roles, nil
}

func effectivePermissions(tx *gorm.DB, userID uint64) ([]models.Permission, error) {
	var perms []models.Permission
	err := tx.Model(&models.Permission{}).
		Select("DISTINCT permissions.*").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Order("permissions.code").
		Find(&perms).Error
	return perms, err
}

// EffectiveRoles returns the roles bound to the user, highest priority first.
func (s *RBACService) EffectiveRoles(ctx context.Context, userID uint64) ([]models.Role, error) {
	return effectiveRoles(s.db.WithContext(ctx), userID)
}

// EffectivePermissions returns the union of the user's role permissions ordered by code.
func (s *RBACService) EffectivePermissions(ctx context.Context, userID uint64) ([]models.Permission, error) {
	return effectivePermissions(s.db.WithContext(ctx), userID)
}

// EffectivePermissionCodes is the cached form of EffectivePermissions used by the authorization gate.
func (s *RBACService) EffectivePermissionCodes(ctx context.Context, userID uint64) ([]string, error) {
	if codes, ok := s.cache.Get(ctx, userID); ok {
		return codes, nil
	}

	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}

	if err := s.cache.Set(ctx, userID, codes); err != nil {
		s.log.Warn("Failed to cache permissions for user %d: %v", userID, err)
	}
	return codes, nil
}

// PrimaryRole returns the highest-priority role code of the user, or fallback when they have none.
func (s *RBACService) PrimaryRole(ctx context.Context, userID uint64, fallback string) (string, error) {
	roles, err := s.EffectiveRoles(ctx, userID)
	if err != nil {
		return "", err
	}
	return PrimaryRoleCode(roles, fallback), nil
}

func (s *RBACService) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Find(&roles).Error; err != nil {
		return nil, err
	}
	SortRolesByPriority(roles)
	return roles, nil
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.WithContext(ctx).Order("module").Order("code").Find(&perms).Error
	return perms, err
}

// RolePermissions returns the permissions granted to one role.
func (s *RBACService) RolePermissions(ctx context.Context, roleCode string) ([]models.Permission, error) {
	db := s.db.WithContext(ctx)
	role, err := lookupRole(db, roleCode)
	if err != nil {
		return nil, err
	}
	var perms []models.Permission
	err = db.Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", role.ID).
		Order("permissions.code").
		Find(&perms).Error
	return perms, err
}

func lookupRole(tx *gorm.DB, code string) (*models.Role, error) {
	role, err := models.GetRoleByCode(strings.TrimSpace(code), tx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: role %q", ErrNotFound, code)
	}
	return role, err
}

func lookupUser(tx *gorm.DB, userID uint64) (*models.User, error) {
	user := &models.User{}
	err := tx.First(user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user", userID)
	}
	return user, err
}

// bindRole inserts the membership row if it is missing and reports whether it did.
func bindRole(tx *gorm.DB, userID, roleID uint64) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID})
	return res.RowsAffected > 0, res.Error
}

// GrantPermissionToRole is idempotent; re-granting writes no audit entry.
func (s *RBACService) GrantPermissionToRole(ctx context.Context, actor Actor, roleCode, permCode string) error {
	granted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := lookupRole(tx, roleCode)
		if err != nil {
			return err
		}
		perm, err := models.GetPermissionByCode(strings.TrimSpace(permCode), tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: permission %q", ErrNotFound, permCode)
		}
		if err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		granted = true

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionGrantRolePermission,
			TargetType: models.TargetRole,
			Target:     Single(role.ID),
			NewValue:   map[string]string{"role": role.Code, "permission": perm.Code},
			Origin:     actor.Origin,
		})
		return err
	})
	if err != nil {
		return txFailure(s.log, "grant permission", err)
	}

	if granted {
		auditCommitted(ActionGrantRolePermission)
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.log.Warn("Failed to invalidate permission cache: %v", err)
		}
	}
	return nil
}

// BindRoleToUser adds one role to the user's memberships.
func (s *RBACService) BindRoleToUser(ctx context.Context, actor Actor, userID uint64, roleCode string) error {
	bound := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lookupUser(tx, userID); err != nil {
			return err
		}
		role, err := lookupRole(tx, roleCode)
		if err != nil {
			return err
		}
		if bound, err = bindRole(tx, userID, role.ID); err != nil || !bound {
			return err
		}

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionBindUserRole,
			TargetType: models.TargetUser,
			Target:     Single(userID),
			NewValue:   map[string]string{"role": role.Code},
			Origin:     actor.Origin,
		})
		return err
	})
	if err != nil {
		return txFailure(s.log, "bind role", err)
	}

	if bound {
		auditCommitted(ActionBindUserRole)
		s.invalidateUser(ctx, userID)
	}
	return nil
}

// ReplaceRolesOfUser makes roleCodes the user's exact role set.
func (s *RBACService) ReplaceRolesOfUser(ctx context.Context, actor Actor, userID uint64, roleCodes []string) ([]models.Role, error) {
	var next []models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lookupUser(tx, userID); err != nil {
			return err
		}

		seen := make(map[string]bool, len(roleCodes))
		for _, raw := range roleCodes {
			code := strings.TrimSpace(raw)
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			role, err := lookupRole(tx, code)
			if errors.Is(err, ErrNotFound) {
				return invalid("roles", fmt.Sprintf("unknown role %q", code))
			}
			if err != nil {
				return err
			}
			next = append(next, *role)
		}
		SortRolesByPriority(next)

		previous, err := effectiveRoles(tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		for _, role := range next {
			if _, err := bindRole(tx, userID, role.ID); err != nil {
				return err
			}
		}

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionReplaceUserRoles,
			TargetType: models.TargetUser,
			Target:     Single(userID),
			OldValue:   map[string][]string{"roles": codesOf(previous)},
			NewValue:   map[string][]string{"roles": codesOf(next)},
			Origin:     actor.Origin,
		})
		return err
	})
	if err != nil {
		return nil, txFailure(s.log, "replace roles", err)
	}

	auditCommitted(ActionReplaceUserRoles)
	s.invalidateUser(ctx, userID)
	return next, nil
}

func (s *RBACService) invalidateUser(ctx context.Context, userID uint64) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.log.Warn("Failed to invalidate permission cache for user %d: %v", userID, err)
	}
}
