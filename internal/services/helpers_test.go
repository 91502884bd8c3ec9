package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"researchhub/internal/config"
	"researchhub/internal/db/dbtest"
	"researchhub/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	recorder *GormRecorder
	rbac     *RBACService
	research *ResearchService
	events   *eventSink
}

type eventSink struct {
	mu     sync.Mutex
	events []StatusChanged
}

func (s *eventSink) emit(_ string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if change, ok := data.(StatusChanged); ok {
		s.events = append(s.events, change)
	}
}

func (s *eventSink) all() []StatusChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusChanged(nil), s.events...)
}

func newFixture(t *testing.T, opts ...func(*config.WorkflowConfig)) *fixture {
	t.Helper()
	db := dbtest.OpenSeeded(t)

	cfg := config.LoadTestConfig().Workflow
	for _, opt := range opts {
		opt(&cfg)
	}

	recorder := NewRecorder()
	sink := &eventSink{}
	research := NewResearchService(db, recorder, cfg)
	research.emit = sink.emit

	return &fixture{
		db:       db,
		recorder: recorder,
		rbac:     NewRBACService(db, recorder, nil),
		research: research,
		events:   sink,
	}
}

func strict(cfg *config.WorkflowConfig) { cfg.StrictTransitions = true }

// createUser inserts an active user with a placeholder digest and binds roles by code.
func createUser(t *testing.T, db *gorm.DB, username, realName string, roles ...string) *models.User {
	t.Helper()
	user := &models.User{Username: username, RealName: realName, PasswordHash: "unused", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	for _, code := range roles {
		role, err := models.GetRoleByCode(code, db)
		require.NoError(t, err)
		require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)
	}
	return user
}

func createItem(t *testing.T, f *fixture, owner *models.User, status string) *models.ResearchItem {
	t.Helper()
	item, err := f.research.Create(context.Background(), Actor{UserID: owner.ID}, CreateResearchInput{
		SubtypeID: 1,
		Title:     "Item of " + owner.Username,
		Status:    status,
	})
	require.NoError(t, err)
	return item
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func auditRows(t *testing.T, db *gorm.DB, action string) []models.AuditLog {
	t.Helper()
	var rows []models.AuditLog
	require.NoError(t, db.Where("action = ?", action).Order("id").Find(&rows).Error)
	return rows
}

func decode(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	if len(raw) == 0 {
		return nil
	}
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type failingRecorder struct{}

var errRecorderDown = errors.New("audit store unavailable")

func (failingRecorder) Record(context.Context, *gorm.DB, Entry) (*models.AuditLog, error) {
	return nil, errRecorderDown
}
