package models

import (
	"time"
)

type User struct {
	Base
	Username     string  `gorm:"size:50;not null;uniqueIndex" json:"username"`
	PasswordHash string  `gorm:"size:255;not null" json:"-"`
	RealName     string  `gorm:"size:50;not null;index" json:"realName"`
	DeptID       *uint64 `json:"deptId,omitempty"`
	TitleID      *uint64 `json:"titleId,omitempty"`
	Email        string  `gorm:"size:100" json:"email,omitempty"`
	Phone        string  `gorm:"size:20" json:"phone,omitempty"`
	AvatarURL    string  `gorm:"size:255" json:"avatarUrl,omitempty"`
	IsActive     bool    `gorm:"not null" json:"isActive"`
}

type Role struct {
	Base
	Name        string `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Code        string `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Description string `gorm:"size:255" json:"description,omitempty"`
	IsSystem    bool   `gorm:"not null;default:false" json:"isSystem"`
}

type Permission struct {
	Base
	Code   string `gorm:"size:100;not null;uniqueIndex" json:"code"`
	Name   string `gorm:"size:100;not null" json:"name"`
	Module string `gorm:"size:50;not null;index" json:"module"`
}

// UserRole binds a user to a role. The composite key makes each binding unique.
type UserRole struct {
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	RoleID    uint64    `gorm:"primaryKey;autoIncrement:false;index" json:"roleId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserRole) TableName() string { return "user_roles" }

// RolePermission grants a permission to a role.
type RolePermission struct {
	RoleID       uint64    `gorm:"primaryKey;autoIncrement:false" json:"roleId"`
	PermissionID uint64    `gorm:"primaryKey;autoIncrement:false;index" json:"permissionId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (RolePermission) TableName() string { return "role_permissions" }
