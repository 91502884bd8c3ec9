package services

import (
	"context"
	"testing"

	"researchhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyStatusChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := createUser(t, f.db, "na", "NA", models.RoleTeacher)
	bob := createUser(t, f.db, "nb", "NB", models.RoleTeacher)
	a := createItem(t, f, alice, "pending")
	b := createItem(t, f, bob, "pending")

	svc := NewNotificationService(f.db)
	n, err := svc.NotifyStatusChange(ctx, StatusChanged{
		ItemIDs: []uint64{a.ID, b.ID, 9999},
		Status:  models.StatusRejected,
		Remarks: strPtr("add references"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	mine, err := svc.ListForUser(ctx, alice.ID, false)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ItemID)
	assert.Contains(t, mine[0].Message, "rejected: add references")

	require.NoError(t, svc.MarkRead(ctx, alice.ID, mine[0].ID))
	unread, err := svc.ListForUser(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, svc.MarkRead(ctx, bob.ID, mine[0].ID), ErrNotFound)

	pending, err := svc.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}
