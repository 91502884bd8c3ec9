package models

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrAuditImmutable = errors.New("audit log entries are append-only")

func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (a *AuditLogTarget) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (a *AuditLogTarget) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// BeforeSave stores status in lower case regardless of how callers spelled it.
func (r *ResearchItem) BeforeSave(tx *gorm.DB) error {
	r.Status = ResearchStatus(strings.ToLower(strings.TrimSpace(string(r.Status))))
	if r.Status == "" {
		r.Status = StatusDraft
	}
	return nil
}
