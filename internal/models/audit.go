package models

import (
	"time"

	"gorm.io/datatypes"
)

// Target types written to audit_logs.target_type.
const (
	TargetResearchItem = "research_item"
	TargetUser         = "user"
	TargetRole         = "role"
)

// AuditLog rows are append-only. Hooks in hooks.go refuse updates and deletes.
type AuditLog struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID    string         `gorm:"size:36;not null;uniqueIndex" json:"eventId"`
	UserID     uint64         `gorm:"not null;index" json:"userId"`
	Action     string         `gorm:"size:100;not null;index" json:"action"`
	TargetType string         `gorm:"size:50;index" json:"targetType"`
	TargetID   *uint64        `gorm:"index" json:"targetId"`
	OldValue   datatypes.JSON `json:"oldValue"`
	NewValue   datatypes.JSON `json:"newValue"`
	IP         string         `gorm:"size:45" json:"ip,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"createdAt"`
}

// AuditLogTarget lists each item of a batch entry so the entry is found by
// target id. Rows are written with their entry and never changed.
type AuditLogTarget struct {
	AuditLogID uint64 `gorm:"primaryKey;autoIncrement:false" json:"auditLogId"`
	TargetID   uint64 `gorm:"primaryKey;autoIncrement:false;index" json:"targetId"`
}

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Role{},
		&Permission{},
		&UserRole{},
		&RolePermission{},
		&ResearchItem{},
		&ResearchCollaborator{},
		&AuditLog{},
		&AuditLogTarget{},
		&Notification{},
	}
}
