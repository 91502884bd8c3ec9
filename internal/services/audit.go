package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"researchhub/internal/auth"
	"researchhub/internal/metrics"
	"researchhub/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action labels written to audit_logs.action.
const (
	ActionCreateResearchItem   = "CREATE_RESEARCH_ITEM"
	ActionUpdateResearchStatus = "UPDATE_RESEARCH_STATUS"
	ActionBatchUpdateStatus    = "BATCH_UPDATE_RESEARCH_STATUS"
	ActionDeleteResearchItem   = "DELETE_RESEARCH_ITEM"
	ActionRegisterUser         = "REGISTER_USER"
	ActionBindUserRole         = "BIND_USER_ROLE"
	ActionReplaceUserRoles     = "REPLACE_USER_ROLES"
	ActionGrantRolePermission  = "GRANT_ROLE_PERMISSION"
	ActionAttachResearchFile   = "ATTACH_RESEARCH_FILE"
)

// Target is either a single row or a batch of rows. A batch entry stores a
// null target id and carries the id list in its new value.
type Target struct {
	ids   []uint64
	batch bool
}

func Single(id uint64) Target {
	return Target{ids: []uint64{id}}
}

func Batch(ids []uint64) Target {
	cp := make([]uint64, len(ids))
	copy(cp, ids)
	return Target{ids: cp, batch: true}
}

func (t Target) IsBatch() bool { return t.batch }

// IDs returns the targeted row ids.
func (t Target) IDs() []uint64 {
	cp := make([]uint64, len(t.ids))
	copy(cp, t.ids)
	return cp
}

// ID returns the column value for audit_logs.target_id.
func (t Target) ID() *uint64 {
	if t.batch || len(t.ids) == 0 {
		return nil
	}
	id := t.ids[0]
	return &id
}

type Entry struct {
	ActorID    uint64
	Action     string
	TargetType string
	Target     Target
	OldValue   interface{}
	NewValue   interface{}
	Origin     string
}

// Recorder appends an audit entry on the caller's transaction. An error must
// abort that transaction.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.AuditLog, error)
}

type GormRecorder struct{}

func NewRecorder() *GormRecorder {
	return &GormRecorder{}
}

func (r *GormRecorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.AuditLog, error) {
	if tx == nil {
		return nil, errors.New("audit entries must be written inside a transaction")
	}
	if entry.Action == "" {
		return nil, errors.New("audit entry has no action")
	}

	oldValue, err := snapshot(entry.OldValue)
	if err != nil {
		return nil, fmt.Errorf("encode old value: %w", err)
	}
	newValue, err := snapshot(entry.NewValue)
	if err != nil {
		return nil, fmt.Errorf("encode new value: %w", err)
	}

	row := &models.AuditLog{
		EventID:    uuid.NewString(),
		UserID:     entry.ActorID,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.Target.ID(),
		OldValue:   oldValue,
		NewValue:   newValue,
		IP:         entry.Origin,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}

	if entry.Target.IsBatch() {
		ids := entry.Target.IDs()
		targets := make([]models.AuditLogTarget, 0, len(ids))
		for _, id := range ids {
			targets = append(targets, models.AuditLogTarget{AuditLogID: row.ID, TargetID: id})
		}
		if len(targets) > 0 {
			if err := tx.WithContext(ctx).CreateInBatches(targets, 200).Error; err != nil {
				return nil, err
			}
		}
	}
	return row, nil
}

func snapshot(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return datatypes.JSON(raw), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// auditCommitted bumps the audit counter once the surrounding transaction committed.
func auditCommitted(actions ...string) {
	for _, action := range actions {
		metrics.AuditEntries.WithLabelValues(action).Inc()
	}
}

// AuditFilter narrows audit queries. Zero fields are ignored.
type AuditFilter struct {
	TargetID   *uint64
	TargetType string
	Action     string
	Page       int
	Limit      int
}

// AuditQueryService reads the audit trail newest first.
type AuditQueryService struct {
	db     *gorm.DB
	reader ReadService[models.AuditLog]
}

func NewAuditQueryService(db *gorm.DB) *AuditQueryService {
	return &AuditQueryService{
		db:     db,
		reader: NewReadService(db, models.AuditLog{}, "target_id", "target_type", "action", "user_id"),
	}
}

func (s *AuditQueryService) List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error) {
	filters := map[string]interface{}{}
	if filter.TargetID != nil {
		filters["target_id"] = *filter.TargetID
	}
	if filter.TargetType != "" {
		filters["target_type"] = filter.TargetType
	}
	if filter.Action != "" {
		filters["action"] = filter.Action
	}
	return s.reader.List(ctx, ListOptions{
		Page:    filter.Page,
		Limit:   filter.Limit,
		Filters: filters,
		OrderBy: "created_at DESC, id DESC",
	})
}

// ByTargetID returns single entries for id together with every batch entry
// that included it, newest first.
func (s *AuditQueryService) ByTargetID(ctx context.Context, id uint64) ([]models.AuditLog, error) {
	batches := s.db.Model(&models.AuditLogTarget{}).Select("audit_log_id").Where("target_id = ?", id)

	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("target_id = ?", id).
		Or("id IN (?)", batches).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	return logs, err
}

func (s *AuditQueryService) ByTargetType(ctx context.Context, targetType string) ([]models.AuditLog, error) {
	logs, _, err := s.List(ctx, AuditFilter{TargetType: targetType})
	return logs, err
}

func (s *AuditQueryService) ByAction(ctx context.Context, action string) ([]models.AuditLog, error) {
	logs, _, err := s.List(ctx, AuditFilter{Action: action})
	return logs, err
}

// Actor is the user performing a mutation and the address the request came from.
type Actor struct {
	UserID uint64
	Origin string
}

func ActorFrom(id auth.Identity, origin string) Actor {
	return Actor{UserID: id.UserID, Origin: origin}
}
