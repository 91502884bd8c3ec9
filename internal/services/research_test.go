package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"researchhub/internal/auth"
	"researchhub/internal/config"
	"researchhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestParseItemID(t *testing.T) {
	id, err := ParseItemID("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	for _, raw := range []string{"", "batch", "-1", "0", "1.5", " 7", "7a", "99999999999999999999999"} {
		_, err := ParseItemID(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.StatusDraft, models.StatusPending))
	assert.True(t, CanTransition(models.StatusPending, models.StatusApproved))
	assert.True(t, CanTransition(models.StatusPending, models.StatusRejected))
	assert.True(t, CanTransition(models.StatusPending, models.StatusPending))
	assert.True(t, CanTransition(models.StatusRejected, models.StatusPending))

	assert.False(t, CanTransition(models.StatusDraft, models.StatusApproved))
	assert.False(t, CanTransition(models.StatusApproved, models.StatusPending))
	assert.False(t, CanTransition(models.StatusRejected, models.StatusApproved))
}

func TestCreateAttachesOnlyMatchedCollaborators(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "alice", "Alice A", models.RoleTeacher)
	bob := createUser(t, f.db, "bob", "Bob B", models.RoleTeacher)
	carol := createUser(t, f.db, "carol", "Carol C", models.RoleTeacher)

	content := json.RawMessage(`{"journal":"Nature","year":2024}`)
	item, err := f.research.Create(context.Background(), Actor{UserID: owner.ID, Origin: "192.168.1.5"}, CreateResearchInput{
		SubtypeID:     3,
		Title:         "  Protein folding  ",
		Content:       content,
		Collaborators: []string{"Bob B", "Nobody", "Carol C", "Ghost Writer", "Bob B", ""},
	})
	require.NoError(t, err)

	assert.NotZero(t, item.ID)
	assert.Equal(t, "Protein folding", item.Title)
	assert.Equal(t, models.StatusDraft, item.Status)
	assert.Nil(t, item.SubmitTime)
	assert.Nil(t, item.ApproveTime)

	var collaborators []models.ResearchCollaborator
	require.NoError(t, f.db.Where("item_id = ?", item.ID).Order("user_id").Find(&collaborators).Error)
	require.Len(t, collaborators, 2)
	assert.Equal(t, bob.ID, collaborators[0].UserID)
	assert.Equal(t, carol.ID, collaborators[1].UserID)
	assert.False(t, collaborators[0].IsConfirmed)
	assert.Len(t, item.Collaborators, 2)

	rows := auditRows(t, f.db, ActionCreateResearchItem)
	require.Len(t, rows, 1)
	entry := rows[0]
	assert.Equal(t, owner.ID, entry.UserID)
	assert.Equal(t, models.TargetResearchItem, entry.TargetType)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, item.ID, *entry.TargetID)
	assert.Empty(t, entry.OldValue)
	assert.Equal(t, "192.168.1.5", entry.IP)
	assert.NotEmpty(t, entry.EventID)

	snapshot := decode(t, entry.NewValue)
	assert.Equal(t, float64(item.ID), snapshot["id"])
	assert.Equal(t, float64(owner.ID), snapshot["userId"])
	assert.Equal(t, "Protein folding", snapshot["title"])
	assert.Equal(t, "draft", snapshot["status"])
	assert.Equal(t, map[string]interface{}{"journal": "Nature", "year": float64(2024)}, snapshot["content"])
	assert.NotContains(t, snapshot, "collaborators")
}

func TestCreateWithPendingStatusSetsSubmitTime(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "dan", "Dan D", models.RoleTeacher)

	item := createItem(t, f, owner, "PENDING")

	assert.Equal(t, models.StatusPending, item.Status)
	assert.NotNil(t, item.SubmitTime)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "erin", "Erin E", models.RoleTeacher)
	actor := Actor{UserID: owner.ID}

	cases := map[string]struct {
		in    CreateResearchInput
		field string
	}{
		"missing title":   {CreateResearchInput{SubtypeID: 1}, "title"},
		"missing subtype": {CreateResearchInput{Title: "x"}, "subtype_id"},
		"bad content":     {CreateResearchInput{Title: "x", SubtypeID: 1, Content: json.RawMessage(`{`)}, "content_json"},
		"unknown status":  {CreateResearchInput{Title: "x", SubtypeID: 1, Status: "archived"}, "status"},
		"approved status": {CreateResearchInput{Title: "x", SubtypeID: 1, Status: "approved"}, "status"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.research.Create(context.Background(), actor, tc.in)
			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
	assert.Zero(t, count(t, f.db, &models.ResearchItem{}))
}

func assertNothingPersisted(t *testing.T, db *gorm.DB) {
	t.Helper()
	assert.Zero(t, count(t, db, &models.ResearchItem{}), "research items")
	assert.Zero(t, count(t, db, &models.ResearchCollaborator{}), "collaborators")
	assert.Zero(t, count(t, db, &models.AuditLog{}), "audit logs")
}

func TestCreateRollsBackWhenCollaboratorInsertFails(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "frank", "Frank F", models.RoleTeacher)
	createUser(t, f.db, "gina", "Gina G", models.RoleTeacher)

	constraint := errors.New("UNIQUE constraint failed: research_collaborators.item_id")
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_collaborators", func(tx *gorm.DB) {
		if tx.Statement.Table == "research_collaborators" {
			_ = tx.AddError(constraint)
		}
	}))

	_, err := f.research.Create(context.Background(), Actor{UserID: owner.ID}, CreateResearchInput{
		SubtypeID:     1,
		Title:         "Doomed",
		Collaborators: []string{"Gina G"},
	})

	assert.ErrorIs(t, err, ErrTransaction)
	assert.NotErrorIs(t, err, ErrValidation)
	assertNothingPersisted(t, f.db)
}

func TestCreateRollsBackWhenAuditFails(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "hank", "Hank H", models.RoleTeacher)
	createUser(t, f.db, "ivy", "Ivy I", models.RoleTeacher)
	research := NewResearchService(f.db, failingRecorder{}, f.research.cfg)

	_, err := research.Create(context.Background(), Actor{UserID: owner.ID}, CreateResearchInput{
		SubtypeID:     1,
		Title:         "Unaudited",
		Collaborators: []string{"Ivy I"},
	})

	assert.ErrorIs(t, err, ErrTransaction)
	assertNothingPersisted(t, f.db)
}

func TestTransitionApproveThenReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := createUser(t, f.db, "jack", "Jack J", models.RoleTeacher)
	reviewer := createUser(t, f.db, "kate", "Kate K", models.RoleResearchAdmin)
	item := createItem(t, f, owner, "pending")
	actor := Actor{UserID: reviewer.ID, Origin: "10.1.1.1"}

	approved, err := f.research.TransitionStatus(ctx, actor, item.ID, "approved", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApproveTime)

	rejected, err := f.research.TransitionStatus(ctx, actor, item.ID, "rejected", strPtr("missing DOI"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Nil(t, rejected.ApproveTime)
	require.NotNil(t, rejected.AuditRemarks)
	assert.Equal(t, "missing DOI", *rejected.AuditRemarks)

	stored := &models.ResearchItem{}
	require.NoError(t, f.db.First(stored, item.ID).Error)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Nil(t, stored.ApproveTime)
	assert.Equal(t, "missing DOI", *stored.AuditRemarks)

	rows := auditRows(t, f.db, ActionUpdateResearchStatus)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]interface{}{"status": "pending"}, decode(t, rows[0].OldValue))
	assert.Equal(t, map[string]interface{}{"status": "approved", "remarks": nil}, decode(t, rows[0].NewValue))
	assert.Equal(t, map[string]interface{}{"status": "approved"}, decode(t, rows[1].OldValue))
	assert.Equal(t, map[string]interface{}{"status": "rejected", "remarks": "missing DOI"}, decode(t, rows[1].NewValue))
	assert.Equal(t, reviewer.ID, rows[1].UserID)
	assert.Equal(t, item.ID, *rows[1].TargetID)

	events := f.events.all()
	require.Len(t, events, 2)
	assert.Equal(t, []uint64{item.ID}, events[1].ItemIDs)
	assert.False(t, events[1].Batch)
}

func TestTransitionCaseFoldsStatus(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "liam", "Liam L", models.RoleTeacher)
	item := createItem(t, f, owner, "")

	updated, err := f.research.TransitionStatus(context.Background(), Actor{UserID: owner.ID}, item.ID, " Pending ", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.NotNil(t, updated.SubmitTime)
}

func TestTransitionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := createUser(t, f.db, "mia", "Mia M", models.RoleTeacher)
	item := createItem(t, f, owner, "pending")

	_, err := f.research.TransitionStatus(ctx, Actor{UserID: owner.ID}, 9999, "approved", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.research.TransitionStatus(ctx, Actor{UserID: owner.ID}, item.ID, "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.research.TransitionStatus(ctx, Actor{UserID: owner.ID}, item.ID, "archived", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.research.TransitionStatus(ctx, Actor{UserID: owner.ID}, 0, "approved", nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, auditRows(t, f.db, ActionUpdateResearchStatus))
	assert.Empty(t, f.events.all())
}

func TestTransitionRollsBackWhenAuditFails(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "noah", "Noah N", models.RoleTeacher)
	item := createItem(t, f, owner, "pending")
	research := NewResearchService(f.db, failingRecorder{}, f.research.cfg)
	research.emit = f.events.emit

	_, err := research.TransitionStatus(context.Background(), Actor{UserID: owner.ID}, item.ID, "approved", nil)
	assert.ErrorIs(t, err, ErrTransaction)

	stored := &models.ResearchItem{}
	require.NoError(t, f.db.First(stored, item.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.ApproveTime)
	assert.Empty(t, f.events.all())
}

func TestTransitionPermissiveByDefault(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "olga", "Olga O", models.RoleTeacher)
	item := createItem(t, f, owner, "draft")

	updated, err := f.research.TransitionStatus(context.Background(), Actor{UserID: owner.ID}, item.ID, "approved", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
}

func TestTransitionStrictRejectsIllegalEdge(t *testing.T) {
	f := newFixture(t, strict)
	owner := createUser(t, f.db, "paul", "Paul P", models.RoleTeacher)
	item := createItem(t, f, owner, "draft")

	_, err := f.research.TransitionStatus(context.Background(), Actor{UserID: owner.ID}, item.ID, "approved", nil)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "status", fieldErr.Field)

	_, err = f.research.TransitionStatus(context.Background(), Actor{UserID: owner.ID}, item.ID, "pending", nil)
	assert.NoError(t, err)
}

// Two reviewers acting on the same item are serialized by the row lock; the
// second one sees the first one's committed status and overwrites it. No
// version check stops the lost update.
func TestTransitionLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := createUser(t, f.db, "quinn", "Quinn Q", models.RoleTeacher)
	first := createUser(t, f.db, "rev1", "Reviewer One", models.RoleResearchAdmin)
	second := createUser(t, f.db, "rev2", "Reviewer Two", models.RoleResearchAdmin)
	item := createItem(t, f, owner, "pending")

	_, err := f.research.TransitionStatus(ctx, Actor{UserID: first.ID}, item.ID, "approved", nil)
	require.NoError(t, err)
	final, err := f.research.TransitionStatus(ctx, Actor{UserID: second.ID}, item.ID, "rejected", strPtr("disagree"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, final.Status)
	rows := auditRows(t, f.db, ActionUpdateResearchStatus)
	require.Len(t, rows, 2)
	assert.Equal(t, "approved", decode(t, rows[1].OldValue)["status"])
}

func TestBatchTransitionUpdatesAllAndAuditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := createUser(t, f.db, "rita", "Rita R", models.RoleTeacher)
	reviewer := createUser(t, f.db, "sam", "Sam S", models.RoleResearchAdmin)

	var ids []uint64
	for i := 0; i < 3; i++ {
		ids = append(ids, createItem(t, f, owner, "pending").ID)
	}
	untouched := createItem(t, f, owner, "pending")

	n, err := f.research.BatchTransitionStatus(ctx, Actor{UserID: reviewer.ID, Origin: "10.9.9.9"}, ids, "APPROVED", strPtr("ok"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	var items []models.ResearchItem
	require.NoError(t, f.db.Where("id IN ?", ids).Find(&items).Error)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Equal(t, models.StatusApproved, item.Status)
		assert.NotNil(t, item.ApproveTime)
		assert.Equal(t, "ok", *item.AuditRemarks)
	}

	other := &models.ResearchItem{}
	require.NoError(t, f.db.First(other, untouched.ID).Error)
	assert.Equal(t, models.StatusPending, other.Status)

	rows := auditRows(t, f.db, ActionBatchUpdateStatus)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].TargetID)
	assert.Equal(t, "10.9.9.9", rows[0].IP)
	assert.Empty(t, rows[0].OldValue)
	newValue := decode(t, rows[0].NewValue)
	assert.Equal(t, "approved", newValue["status"])
	assert.Equal(t, "ok", newValue["remarks"])
	assert.Equal(t, []interface{}{float64(ids[0]), float64(ids[1]), float64(ids[2])}, newValue["ids"])

	events := f.events.all()
	require.Len(t, events, 1)
	assert.True(t, events[0].Batch)
	assert.Equal(t, ids, events[0].ItemIDs)
}

func TestBatchTransitionCountsOnlyExistingRows(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "tina", "Tina T", models.RoleTeacher)
	item := createItem(t, f, owner, "pending")

	n, err := f.research.BatchTransitionStatus(context.Background(), Actor{UserID: owner.ID},
		[]uint64{item.ID, item.ID, 424242}, "rejected", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows := auditRows(t, f.db, ActionBatchUpdateStatus)
	require.Len(t, rows, 1)
	assert.Len(t, decode(t, rows[0].NewValue)["ids"], 2)
}

func TestBatchTransitionPendingOnlyStampsNewSubmissions(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "uma", "Uma U", models.RoleTeacher)
	draft := createItem(t, f, owner, "draft")
	pending := createItem(t, f, owner, "pending")

	later := time.Now().Add(time.Hour)
	f.research.now = func() time.Time { return later }

	_, err := f.research.BatchTransitionStatus(context.Background(), Actor{UserID: owner.ID},
		[]uint64{draft.ID, pending.ID}, "pending", nil)
	require.NoError(t, err)

	stored := &models.ResearchItem{}
	require.NoError(t, f.db.First(stored, draft.ID).Error)
	require.NotNil(t, stored.SubmitTime)
	assert.WithinDuration(t, later, *stored.SubmitTime, time.Second)

	stored = &models.ResearchItem{}
	require.NoError(t, f.db.First(stored, pending.ID).Error)
	require.NotNil(t, stored.SubmitTime)
	assert.WithinDuration(t, *pending.SubmitTime, *stored.SubmitTime, time.Second)
}

func TestBatchTransitionValidation(t *testing.T) {
	f := newFixture(t, func(cfg *config.WorkflowConfig) { cfg.MaxBatchSize = 2 })
	ctx := context.Background()

	_, err := f.research.BatchTransitionStatus(ctx, Actor{UserID: 1}, nil, "approved", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.research.BatchTransitionStatus(ctx, Actor{UserID: 1}, []uint64{1, 0}, "approved", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.research.BatchTransitionStatus(ctx, Actor{UserID: 1}, []uint64{1, 2, 3}, "approved", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.research.BatchTransitionStatus(ctx, Actor{UserID: 1}, []uint64{1}, "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, auditRows(t, f.db, ActionBatchUpdateStatus))
}

func TestBatchTransitionStrictFailsWholeBatch(t *testing.T) {
	f := newFixture(t, strict)
	owner := createUser(t, f.db, "vic", "Vic V", models.RoleTeacher)
	pending := createItem(t, f, owner, "pending")
	draft := createItem(t, f, owner, "draft")

	_, err := f.research.BatchTransitionStatus(context.Background(), Actor{UserID: owner.ID},
		[]uint64{pending.ID, draft.ID}, "approved", nil)
	assert.ErrorIs(t, err, ErrValidation)

	stored := &models.ResearchItem{}
	require.NoError(t, f.db.First(stored, pending.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Empty(t, auditRows(t, f.db, ActionBatchUpdateStatus))
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := createUser(t, f.db, "wes", "Wes W", models.RoleTeacher)
	createUser(t, f.db, "xena", "Xena X", models.RoleTeacher)
	stranger := createUser(t, f.db, "yuri", "Yuri Y", models.RoleTeacher)

	item, err := f.research.Create(ctx, Actor{UserID: owner.ID}, CreateResearchInput{
		SubtypeID: 1, Title: "Shared", Collaborators: []string{"Xena X"},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.research.Delete(ctx, Actor{UserID: stranger.ID}, item.ID, false), auth.ErrForbidden)
	assert.Equal(t, int64(1), count(t, f.db, &models.ResearchItem{}))

	require.NoError(t, f.research.Delete(ctx, Actor{UserID: owner.ID}, item.ID, false))
	assert.Zero(t, count(t, f.db, &models.ResearchItem{}))
	assert.Zero(t, count(t, f.db, &models.ResearchCollaborator{}))

	rows := auditRows(t, f.db, ActionDeleteResearchItem)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].NewValue)
	old := decode(t, rows[0].OldValue)
	assert.Equal(t, "Shared", old["title"])
	assert.Len(t, old["collaborators"], 1)

	assert.ErrorIs(t, f.research.Delete(ctx, Actor{UserID: owner.ID}, item.ID, true), ErrNotFound)
}

func TestDeleteByReviewer(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f.db, "zane", "Zane Z", models.RoleTeacher)
	reviewer := createUser(t, f.db, "amy", "Amy A", models.RoleResearchAdmin)
	item := createItem(t, f, owner, "pending")

	require.NoError(t, f.research.Delete(context.Background(), Actor{UserID: reviewer.ID}, item.ID, true))
	assert.Zero(t, count(t, f.db, &models.ResearchItem{}))
}

func TestAttachFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := createUser(t, f.db, "ben", "Ben B", models.RoleTeacher)
	item := createItem(t, f, owner, "draft")

	updated, err := f.research.AttachFile(ctx, Actor{UserID: owner.ID}, item.ID, "research/1/a.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, "research/1/a.pdf", updated.FileURL)

	_, err = f.research.AttachFile(ctx, Actor{UserID: owner.ID + 100}, item.ID, "research/1/b.pdf", false)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.research.AttachFile(ctx, Actor{UserID: owner.ID}, item.ID, "", false)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Len(t, auditRows(t, f.db, ActionAttachResearchFile), 1)
}

func TestResearchQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := createUser(t, f.db, "al", "Al", models.RoleTeacher)
	bob := createUser(t, f.db, "bo", "Bo", models.RoleTeacher)
	createItem(t, f, alice, "draft")
	p1 := createItem(t, f, alice, "pending")
	p2 := createItem(t, f, bob, "pending")

	mine, err := f.research.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := f.research.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, p1.ID, pending[0].ID)
	assert.Equal(t, p2.ID, pending[1].ID)

	all, total, err := f.research.List(ctx, ListOptions{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 2)

	_, _, err = f.research.List(ctx, ListOptions{Filters: map[string]interface{}{"1=1 OR title": "x"}})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.research.Get(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.UserID)

	_, err = f.research.Get(ctx, 31337)
	assert.ErrorIs(t, err, ErrNotFound)
}
