package models

import (
	"strings"
	"time"
)

// Base contains common columns for all tables
type Base struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Role codes seeded at startup. Other codes may be created at runtime.
const (
	RoleSysAdmin      = "sys_admin"
	RoleResearchAdmin = "research_admin"
	RoleTeacher       = "teacher"
)

type ResearchStatus string

const (
	StatusDraft    ResearchStatus = "draft"
	StatusPending  ResearchStatus = "pending"
	StatusApproved ResearchStatus = "approved"
	StatusRejected ResearchStatus = "rejected"
)

var researchStatuses = []ResearchStatus{StatusDraft, StatusPending, StatusApproved, StatusRejected}

// ResearchStatuses lists every status in lifecycle order.
func ResearchStatuses() []ResearchStatus {
	out := make([]ResearchStatus, len(researchStatuses))
	copy(out, researchStatuses)
	return out
}

// ParseResearchStatus case-folds s and reports whether it names a known status.
func ParseResearchStatus(s string) (ResearchStatus, bool) {
	status := ResearchStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range researchStatuses {
		if status == known {
			return status, true
		}
	}
	return status, false
}

func IsValidResearchStatus(s string) bool {
	_, ok := ParseResearchStatus(s)
	return ok
}
