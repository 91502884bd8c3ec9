package services

import (
	"context"
	"testing"
	"time"

	"researchhub/internal/auth"
	"researchhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*fixture, *AuthService, *auth.TokenService) {
	t.Helper()
	f := newFixture(t)
	tokens, err := auth.NewTokenService("0123456789abcdef0123456789abcdef", 7*24*time.Hour, "test")
	require.NoError(t, err)
	return f, NewAuthService(f.db, f.rbac, tokens, f.recorder, models.RoleTeacher, models.RoleResearchAdmin), tokens
}

func TestRegisterLoginCreateAndBatchApprove(t *testing.T) {
	f, svc, tokens := newAuthFixture(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "pw1", RealName: "Alice A"}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleTeacher}, registered.Roles)
	assert.Equal(t, models.RoleTeacher, registered.Identity.Role)
	assert.NotEqual(t, "pw1", registered.User.PasswordHash)

	session, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	id, err := tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, id.UserID)
	assert.Equal(t, "alice", id.Username)

	_, wrongPassword := svc.Login(ctx, "alice", "wrong")
	_, unknownUser := svc.Login(ctx, "mallory", "pw1")
	require.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, auth.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	item, err := f.research.Create(ctx, Actor{UserID: id.UserID}, CreateResearchInput{SubtypeID: 1, Title: "Alice's paper"})
	require.NoError(t, err)

	n, err := f.research.BatchTransitionStatus(ctx, Actor{UserID: id.UserID}, []uint64{item.ID}, "approved", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored := &models.ResearchItem{}
	require.NoError(t, f.db.First(stored, item.ID).Error)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.NotNil(t, stored.ApproveTime)
	assert.Len(t, auditRows(t, f.db, ActionBatchUpdateStatus), 1)
	assert.Len(t, auditRows(t, f.db, ActionRegisterUser), 1)
}

func TestRegisterDuplicateHandle(t *testing.T) {
	_, svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "dup", Password: "pw", RealName: "Dup"}, "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: " dup ", Password: "pw2", RealName: "Dup Two"}, "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	_, svc, _ := newAuthFixture(t)

	cases := map[string]RegisterInput{
		"username":  {Password: "pw", RealName: "X"},
		"password":  {Username: "x", RealName: "X"},
		"real_name": {Username: "x", Password: "pw"},
	}
	for field, in := range cases {
		_, err := svc.Register(context.Background(), in, "")
		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr, field)
		assert.Equal(t, field, fieldErr.Field)
	}
}

func TestRegisterRoleSelection(t *testing.T) {
	_, svc, _ := newAuthFixture(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterInput{Username: "ra", Password: "pw", RealName: "RA", RoleCode: models.RoleResearchAdmin}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleResearchAdmin, admin.Identity.Role)

	fallback, err := svc.Register(ctx, RegisterInput{Username: "fb", Password: "pw", RealName: "FB", RoleCode: "wizard"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, fallback.Identity.Role)

	escalate, err := svc.Register(ctx, RegisterInput{Username: "root", Password: "pw", RealName: "Root", RoleCode: models.RoleSysAdmin}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, escalate.Identity.Role)
	assert.Equal(t, []string{models.RoleTeacher}, escalate.Roles)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Username: "gone", Password: "pw", RealName: "Gone"}, "")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", session.User.ID).Update("is_active", false).Error)

	_, err = svc.Login(ctx, "gone", "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestInactiveUserCreatedDirectlyCannotLogin(t *testing.T) {
	f, svc, _ := newAuthFixture(t)

	digest, err := auth.HashPassword("pw")
	require.NoError(t, err)
	disabled := &models.User{Username: "disabled", PasswordHash: digest, RealName: "Disabled", IsActive: false}
	require.NoError(t, f.db.Create(disabled).Error)

	stored := &models.User{}
	require.NoError(t, f.db.First(stored, disabled.ID).Error)
	assert.False(t, stored.IsActive)

	_, err = svc.Login(context.Background(), "disabled", "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

// Tokens carry the role that was primary when they were issued; role
// changes take effect at the next login.
func TestTokenRoleClaimIsNotRevokedOnRoleChange(t *testing.T) {
	_, svc, tokens := newAuthFixture(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Username: "stale", Password: "pw", RealName: "Stale"}, "")
	require.NoError(t, err)

	_, err = svc.rbac.ReplaceRolesOfUser(ctx, Actor{UserID: 1}, session.User.ID, []string{models.RoleSysAdmin})
	require.NoError(t, err)

	id, err := tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, id.Role)

	fresh, err := svc.Login(ctx, "stale", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSysAdmin, fresh.Identity.Role)
}

func TestMe(t *testing.T) {
	_, svc, _ := newAuthFixture(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Username: "me", Password: "pw", RealName: "Me", RoleCode: models.RoleResearchAdmin}, "")
	require.NoError(t, err)

	profile, err := svc.Me(ctx, session.Identity)
	require.NoError(t, err)
	assert.Equal(t, "me", profile.User.Username)
	assert.Equal(t, []string{models.RoleResearchAdmin}, profile.Roles)
	assert.Contains(t, profile.Permissions, models.PermResearchReview)

	_, err = svc.Me(ctx, auth.Identity{UserID: 4040})
	assert.ErrorIs(t, err, ErrNotFound)
}
