package services

import (
	"context"
	"fmt"

	"researchhub/internal/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func statusMessage(item models.ResearchItem, change StatusChanged) string {
	msg := fmt.Sprintf("Your research item %q is now %s", item.Title, change.Status)
	if change.Remarks != nil && *change.Remarks != "" {
		msg += ": " + *change.Remarks
	}
	return msg
}

// NotifyStatusChange stores one notification per existing item owner and returns how many were written.
func (s *NotificationService) NotifyStatusChange(ctx context.Context, change StatusChanged) (int, error) {
	if len(change.ItemIDs) == 0 {
		return 0, nil
	}

	var items []models.ResearchItem
	if err := s.db.WithContext(ctx).
		Select("id", "user_id", "title").
		Where("id IN ?", change.ItemIDs).
		Order("id").
		Find(&items).Error; err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	rows := make([]models.Notification, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.Notification{
			UserID:  item.UserID,
			ItemID:  item.ID,
			Status:  change.Status,
			Message: statusMessage(item, change),
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, 100).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID uint64, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// MarkRead flags a notification read. Notifications of other users are reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint64) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("notification", notificationID)
	}
	return nil
}

// CountPending is used by the reminder job.
func (s *NotificationService) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ResearchItem{}).Where("status = ?", models.StatusPending).Count(&n).Error
	return n, err
}
