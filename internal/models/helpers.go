package models

import (
	"gorm.io/gorm"
)

// GetUserByUsername retrieves an active user by handle.
func GetUserByUsername(username string, db *gorm.DB) (*User, error) {
	user := &User{}
	if err := db.Where("username = ? AND is_active = ?", username, true).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetRoleByCode(code string, db *gorm.DB) (*Role, error) {
	role := &Role{}
	if err := db.Where("code = ?", code).First(role).Error; err != nil {
		return nil, err
	}
	return role, nil
}

func GetPermissionByCode(code string, db *gorm.DB) (*Permission, error) {
	perm := &Permission{}
	if err := db.Where("code = ?", code).First(perm).Error; err != nil {
		return nil, err
	}
	return perm, nil
}

// FindUsersByRealNames matches display names exactly. Names without a match are absent from the result.
func FindUsersByRealNames(names []string, db *gorm.DB) ([]User, error) {
	var users []User
	if len(names) == 0 {
		return users, nil
	}
	if err := db.Where("real_name IN ?", names).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
