package models

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResearchItem struct {
	Base
	UserID        uint64                 `gorm:"not null;index" json:"userId"`
	SubtypeID     uint64                 `gorm:"not null;index" json:"subtypeId"`
	Title         string                 `gorm:"size:255;not null" json:"title"`
	Content       datatypes.JSON         `gorm:"column:content_json" json:"content,omitempty"`
	Status        ResearchStatus         `gorm:"size:16;not null;default:draft;index" json:"status"`
	SubmitTime    *time.Time             `json:"submitTime"`
	ApproveTime   *time.Time             `json:"approveTime"`
	AuditRemarks  *string                `gorm:"type:text" json:"auditRemarks"`
	FileURL       string                 `gorm:"size:255" json:"fileUrl,omitempty"`
	SignedFileURL string                 `gorm:"-" json:"signedFileUrl,omitempty"`
	Collaborators []ResearchCollaborator `gorm:"foreignKey:ItemID" json:"collaborators,omitempty"`
}

// AfterFind attaches a short-lived download link when storage is configured.
// Signing failures leave the link empty rather than failing the read.
func (r *ResearchItem) AfterFind(tx *gorm.DB) error {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	url, ok, err := signAttachment(ctx, r.FileURL)
	if err != nil {
		log.Warn("Failed to sign file url for research item %d: %v", r.ID, err)
		return nil
	}
	if ok {
		r.SignedFileURL = url
	}
	return nil
}

type ResearchCollaborator struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID      uint64    `gorm:"not null;uniqueIndex:idx_collaborator_item_user" json:"itemId"`
	UserID      uint64    `gorm:"not null;uniqueIndex:idx_collaborator_item_user;index" json:"userId"`
	Role        *string   `gorm:"size:50" json:"role,omitempty"`
	IsConfirmed bool      `gorm:"not null;default:false" json:"isConfirmed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notification tells an item owner that a reviewer changed its status.
type Notification struct {
	Base
	UserID  uint64         `gorm:"not null;index" json:"userId"`
	ItemID  uint64         `gorm:"not null;index" json:"itemId"`
	Status  ResearchStatus `gorm:"size:16;not null" json:"status"`
	Message string         `gorm:"type:text;not null" json:"message"`
	IsRead  bool           `gorm:"not null;default:false" json:"isRead"`
}
