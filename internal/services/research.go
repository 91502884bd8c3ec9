package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"researchhub/internal/auth"
	"researchhub/internal/config"
	"researchhub/internal/events"
	"researchhub/internal/metrics"
	"researchhub/internal/models"
	console "researchhub/internal/utils/logger"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventStatusChanged is emitted after a status transition commits.
const EventStatusChanged = "research_item.status_changed"

// StatusChanged is the payload of EventStatusChanged.
type StatusChanged struct {
	ItemIDs []uint64              `json:"itemIds"`
	Status  models.ResearchStatus `json:"status"`
	Remarks *string               `json:"remarks,omitempty"`
	ActorID uint64                `json:"actorId"`
	Batch   bool                  `json:"batch"`
}

// transitions is enforced only when the workflow runs in strict mode.
var transitions = map[models.ResearchStatus][]models.ResearchStatus{
	models.StatusDraft:    {models.StatusPending},
	models.StatusPending:  {models.StatusPending, models.StatusApproved, models.StatusRejected},
	models.StatusRejected: {models.StatusPending},
	models.StatusApproved: nil,
}

// CanTransition reports whether the strict transition table allows from -> to.
func CanTransition(from, to models.ResearchStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var numericID = regexp.MustCompile(`^\d+$`)

// ParseItemID accepts only a positive decimal integer.
func ParseItemID(raw string) (uint64, error) {
	if !numericID.MatchString(raw) {
		return 0, invalid("id", "must be a positive integer")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, invalid("id", "must be a positive integer")
	}
	return id, nil
}

func parseStatus(raw string) (models.ResearchStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return "", invalid("status", "is required")
	}
	status, ok := models.ParseResearchStatus(raw)
	if !ok {
		return "", invalid("status", "must be one of draft, pending, approved, rejected")
	}
	return status, nil
}

type CreateResearchInput struct {
	SubtypeID     uint64
	Title         string
	Content       json.RawMessage
	Status        string
	FileURL       string
	Collaborators []string
}

type ResearchService struct {
	db       *gorm.DB
	recorder Recorder
	cfg      config.WorkflowConfig
	reader   ReadService[models.ResearchItem]
	log      *console.Logger
	now      func() time.Time
	emit     func(event string, data interface{})
}

func NewResearchService(db *gorm.DB, recorder Recorder, cfg config.WorkflowConfig) *ResearchService {
	return &ResearchService{
		db:       db,
		recorder: recorder,
		cfg:      cfg,
		reader:   NewReadService(db, models.ResearchItem{}, "user_id", "status", "subtype_id"),
		log:      console.New("RESEARCH"),
		now:      time.Now,
		emit:     events.Emit,
	}
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Create inserts the item, its collaborators and the audit entry in one
// transaction. Collaborator names with no exact real_name match are dropped.
func (s *ResearchService) Create(ctx context.Context, actor Actor, in CreateResearchInput) (*models.ResearchItem, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, invalid("title", "is required")
	case len(title) > 255:
		return nil, invalid("title", "must be at most 255 characters")
	case in.SubtypeID == 0:
		return nil, invalid("subtype_id", "is required")
	case len(in.Content) > 0 && !json.Valid(in.Content):
		return nil, invalid("content_json", "must be valid JSON")
	}

	status := models.StatusDraft
	if strings.TrimSpace(in.Status) != "" {
		parsed, err := parseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		if parsed != models.StatusDraft && parsed != models.StatusPending {
			return nil, invalid("status", "new items must be draft or pending")
		}
		status = parsed
	}

	item := &models.ResearchItem{
		UserID:    actor.UserID,
		SubtypeID: in.SubtypeID,
		Title:     title,
		Content:   datatypes.JSON(in.Content),
		Status:    status,
		FileURL:   strings.TrimSpace(in.FileURL),
	}
	if status == models.StatusPending {
		now := s.now()
		item.SubmitTime = &now
	}
	names := uniqueNames(in.Collaborators)

	var collaborators []models.ResearchCollaborator
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}

		users, err := models.FindUsersByRealNames(names, tx)
		if err != nil {
			return err
		}
		if dropped := len(names) - len(users); dropped > 0 {
			s.log.Debug("Item %d: %d collaborator name(s) matched no user", item.ID, dropped)
		}
		for _, u := range users {
			collaborators = append(collaborators, models.ResearchCollaborator{ItemID: item.ID, UserID: u.ID})
		}
		if len(collaborators) > 0 {
			if err := tx.Create(&collaborators).Error; err != nil {
				return err
			}
		}

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionCreateResearchItem,
			TargetType: models.TargetResearchItem,
			Target:     Single(item.ID),
			NewValue:   item,
			Origin:     actor.Origin,
		})
		return err
	})
	if err != nil {
		return nil, txFailure(s.log, "create research item", err)
	}
	auditCommitted(ActionCreateResearchItem)

	item.Collaborators = collaborators
	s.log.Info("User %d created research item %d with %d collaborator(s)", actor.UserID, item.ID, len(collaborators))
	return item, nil
}

// statusColumns are the column writes shared by single and batch transitions.
// approve_time is set exactly when the new status is approved.
func statusColumns(to models.ResearchStatus, remarks *string, now time.Time) map[string]interface{} {
	cols := map[string]interface{}{
		"status":        to,
		"audit_remarks": remarks,
		"approve_time":  nil,
	}
	if to == models.StatusApproved {
		cols["approve_time"] = now
	}
	return cols
}

// TransitionStatus moves one item to a new status under a row lock.
// Concurrent reviewers are serialized by the lock; the later commit wins.
func (s *ResearchService) TransitionStatus(ctx context.Context, actor Actor, itemID uint64, rawStatus string, remarks *string) (*models.ResearchItem, error) {
	if itemID == 0 {
		return nil, invalid("id", "must be a positive integer")
	}
	to, err := parseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	item := &models.ResearchItem{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(item, "id = ?", itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("research item", itemID)
		}
		if err != nil {
			return err
		}

		from := item.Status
		if s.cfg.StrictTransitions && !CanTransition(from, to) {
			return invalid("status", fmt.Sprintf("cannot move from %s to %s", from, to))
		}

		now := s.now()
		cols := statusColumns(to, remarks, now)
		if to == models.StatusPending && from != models.StatusPending {
			cols["submit_time"] = now
		}
		if err := tx.Model(&models.ResearchItem{}).Where("id = ?", itemID).Updates(cols).Error; err != nil {
			return err
		}

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionUpdateResearchStatus,
			TargetType: models.TargetResearchItem,
			Target:     Single(itemID),
			OldValue:   map[string]interface{}{"status": from},
			NewValue:   map[string]interface{}{"status": to, "remarks": remarks},
			Origin:     actor.Origin,
		})
		if err != nil {
			return err
		}

		return tx.First(item, "id = ?", itemID).Error
	})
	if err != nil {
		return nil, txFailure(s.log, "transition status", err)
	}

	auditCommitted(ActionUpdateResearchStatus)
	metrics.StatusTransitions.WithLabelValues(string(to), "single").Inc()
	s.emit(EventStatusChanged, StatusChanged{
		ItemIDs: []uint64{itemID},
		Status:  to,
		Remarks: remarks,
		ActorID: actor.UserID,
	})
	return item, nil
}

func normalizeIDs(ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, invalid("ids", "is required")
	}
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, invalid("ids", "must contain positive integers")
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// BatchTransitionStatus applies one status to every id with a single UPDATE
// and writes one audit entry listing all ids. It returns the number of rows
// changed; ids that do not exist are not counted.
func (s *ResearchService) BatchTransitionStatus(ctx context.Context, actor Actor, itemIDs []uint64, rawStatus string, remarks *string) (int64, error) {
	ids, err := normalizeIDs(itemIDs)
	if err != nil {
		return 0, err
	}
	if s.cfg.MaxBatchSize > 0 && len(ids) > s.cfg.MaxBatchSize {
		return 0, invalid("ids", fmt.Sprintf("at most %d ids per batch", s.cfg.MaxBatchSize))
	}
	to, err := parseStatus(rawStatus)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.cfg.StrictTransitions {
			var current []models.ResearchItem
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id", "status").
				Where("id IN ?", ids).
				Order("id").
				Find(&current).Error; err != nil {
				return err
			}
			for _, item := range current {
				if !CanTransition(item.Status, to) {
					return invalid("status", fmt.Sprintf("item %d cannot move from %s to %s", item.ID, item.Status, to))
				}
			}
		}

		now := s.now()
		cols := statusColumns(to, remarks, now)
		if to == models.StatusPending {
			cols["submit_time"] = gorm.Expr("CASE WHEN status <> ? THEN ? ELSE submit_time END", models.StatusPending, now)
		}
		res := tx.Model(&models.ResearchItem{}).Where("id IN ?", ids).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected

		_, err := s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionBatchUpdateStatus,
			TargetType: models.TargetResearchItem,
			Target:     Batch(ids),
			NewValue:   map[string]interface{}{"ids": ids, "status": to, "remarks": remarks},
			Origin:     actor.Origin,
		})
		return err
	})
	if err != nil {
		return 0, txFailure(s.log, "batch transition status", err)
	}

	auditCommitted(ActionBatchUpdateStatus)
	metrics.StatusTransitions.WithLabelValues(string(to), "batch").Add(float64(affected))
	s.log.Info("User %d moved %d of %d item(s) to %s", actor.UserID, affected, len(ids), to)
	s.emit(EventStatusChanged, StatusChanged{
		ItemIDs: ids,
		Status:  to,
		Remarks: remarks,
		ActorID: actor.UserID,
		Batch:   true,
	})
	return affected, nil
}

// Delete removes an item and its collaborators. Only the owner may delete
// unless canDeleteAny is set.
func (s *ResearchService) Delete(ctx context.Context, actor Actor, itemID uint64, canDeleteAny bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item := &models.ResearchItem{}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Collaborators").
			First(item, "id = ?", itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("research item", itemID)
		}
		if err != nil {
			return err
		}
		if !canDeleteAny && item.UserID != actor.UserID {
			return auth.ErrForbidden
		}

		if err := tx.Where("item_id = ?", itemID).Delete(&models.ResearchCollaborator{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ResearchItem{}, itemID).Error; err != nil {
			return err
		}

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionDeleteResearchItem,
			TargetType: models.TargetResearchItem,
			Target:     Single(itemID),
			OldValue:   item,
			Origin:     actor.Origin,
		})
		return err
	})
	if err != nil {
		return txFailure(s.log, "delete research item", err)
	}
	auditCommitted(ActionDeleteResearchItem)
	return nil
}

// AttachFile stores an uploaded object key on the item. Same ownership rule as Delete.
func (s *ResearchService) AttachFile(ctx context.Context, actor Actor, itemID uint64, objectKey string, canEditAny bool) (*models.ResearchItem, error) {
	if strings.TrimSpace(objectKey) == "" {
		return nil, invalid("file", "is required")
	}

	item := &models.ResearchItem{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(item, "id = ?", itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("research item", itemID)
		}
		if err != nil {
			return err
		}
		if !canEditAny && item.UserID != actor.UserID {
			return auth.ErrForbidden
		}

		previous := item.FileURL
		if err := tx.Model(&models.ResearchItem{}).Where("id = ?", itemID).Update("file_url", objectKey).Error; err != nil {
			return err
		}
		item.FileURL = objectKey

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    actor.UserID,
			Action:     ActionAttachResearchFile,
			TargetType: models.TargetResearchItem,
			Target:     Single(itemID),
			OldValue:   map[string]string{"fileUrl": previous},
			NewValue:   map[string]string{"fileUrl": objectKey},
			Origin:     actor.Origin,
		})
		return err
	})
	if err != nil {
		return nil, txFailure(s.log, "attach file", err)
	}
	auditCommitted(ActionAttachResearchFile)
	return item, nil
}

func (s *ResearchService) Get(ctx context.Context, itemID uint64) (*models.ResearchItem, error) {
	return s.reader.Get(ctx, itemID, "Collaborators")
}

func (s *ResearchService) List(ctx context.Context, opts ListOptions) ([]models.ResearchItem, int64, error) {
	return s.reader.List(ctx, opts)
}

func (s *ResearchService) ListByOwner(ctx context.Context, userID uint64) ([]models.ResearchItem, error) {
	items, _, err := s.reader.List(ctx, ListOptions{Filters: map[string]interface{}{"user_id": userID}})
	return items, err
}

// ListPending returns items awaiting review, oldest submission first.
func (s *ResearchService) ListPending(ctx context.Context) ([]models.ResearchItem, error) {
	items, _, err := s.reader.List(ctx, ListOptions{
		Filters: map[string]interface{}{"status": models.StatusPending},
		OrderBy: "submit_time ASC, id ASC",
	})
	return items, err
}
