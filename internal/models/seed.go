package models

import (
	"errors"
	"fmt"

	"researchhub/internal/auth"
	"researchhub/internal/config"
	console "researchhub/internal/utils/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var log = console.New("SEEDER")

var ErrAdminNotConfigured = errors.New("SYS_ADMIN_USERNAME and SYS_ADMIN_PASSWORD are not set")

// SeedRBAC creates the default roles, permissions and grants. Safe to run on every start.
func SeedRBAC(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		permIDs := make(map[string]uint64, len(defaultPermissions))
		for _, seed := range defaultPermissions {
			perm := Permission{}
			if err := tx.Where(Permission{Code: seed.Code}).
				Attrs(Permission{Name: seed.Name, Module: seed.Module}).
				FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", seed.Code, err)
			}
			permIDs[perm.Code] = perm.ID
		}

		for _, seed := range defaultRoles {
			role := Role{}
			if err := tx.Where(Role{Code: seed.Code}).
				Attrs(Role{Name: seed.Name, Description: seed.Description, IsSystem: seed.IsSystem}).
				FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("failed to seed role %s: %w", seed.Code, err)
			}

			log.Info("Seeding permissions for role: %s", role.Code)
			for _, code := range rolePermissions[role.Code] {
				grant := RolePermission{RoleID: role.ID, PermissionID: permIDs[code]}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error; err != nil {
					return fmt.Errorf("failed to grant %s to %s: %w", code, role.Code, err)
				}
			}
		}
		return nil
	})
}

// CreateSysAdminFromEnv creates the first system administrator unless one already exists.
func CreateSysAdminFromEnv(db *gorm.DB, cfg *config.Config) error {
	role, err := GetRoleByCode(RoleSysAdmin, db)
	if err != nil {
		return fmt.Errorf("sys_admin role missing, seed roles first: %w", err)
	}

	var count int64
	if err := db.Model(&UserRole{}).Where("role_id = ?", role.ID).Count(&count).Error; err != nil {
		return err
	}
	log.Info("System administrator count: %d", count)
	if count > 0 {
		return nil
	}

	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		return ErrAdminNotConfigured
	}

	digest, err := auth.HashPassword(cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := User{
			Username:     cfg.Admin.Username,
			PasswordHash: digest,
			RealName:     cfg.Admin.RealName,
			Email:        cfg.Admin.Email,
			IsActive:     true,
		}
		if err := tx.Where(User{Username: user.Username}).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("failed to create system administrator: %w", err)
		}
		binding := UserRole{UserID: user.ID, RoleID: role.ID}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&binding).Error
	})
}
