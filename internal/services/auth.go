package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"researchhub/internal/auth"
	"researchhub/internal/metrics"
	"researchhub/internal/models"
	console "researchhub/internal/utils/logger"

	"gorm.io/gorm"
)

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, time.Time, error)
}

type RegisterInput struct {
	Username string
	Password string
	RealName string
	Email    string
	Phone    string
	DeptID   *uint64
	TitleID  *uint64
	RoleCode string
}

// Session is returned by login and registration.
type Session struct {
	User      *models.User  `json:"user"`
	Roles     []string      `json:"roles"`
	Identity  auth.Identity `json:"identity"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Profile is the current user with their live roles and permissions.
type Profile struct {
	User        *models.User `json:"user"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
}

type AuthService struct {
	db          *gorm.DB
	rbac        *RBACService
	tokens      TokenIssuer
	recorder    Recorder
	defaultRole string
	registrable map[string]bool
	log         *console.Logger
}

// NewAuthService builds the service. Registration may request only the
// registrable role codes; anything else gets defaultRole.
func NewAuthService(db *gorm.DB, rbac *RBACService, tokens TokenIssuer, recorder Recorder, defaultRole string, registrable ...string) *AuthService {
	allowed := make(map[string]bool, len(registrable))
	for _, code := range registrable {
		allowed[code] = true
	}
	return &AuthService{
		db:          db,
		rbac:        rbac,
		tokens:      tokens,
		recorder:    recorder,
		defaultRole: defaultRole,
		registrable: allowed,
		log:         console.New("AUTH"),
	}
}

func (in *RegisterInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.RealName = strings.TrimSpace(in.RealName)
	in.Email = strings.TrimSpace(in.Email)
	in.RoleCode = strings.TrimSpace(in.RoleCode)

	switch {
	case in.Username == "":
		return invalid("username", "is required")
	case len(in.Username) > 50:
		return invalid("username", "must be at most 50 characters")
	case in.Password == "":
		return invalid("password", "is required")
	case in.RealName == "":
		return invalid("real_name", "is required")
	}
	return nil
}

// Register creates an active user, binds the requested role (or the default
// one when the code is empty or unknown) and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, origin string) (*Session, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", in.Username).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: username %q is already registered", ErrConflict, in.Username)
	}

	digest, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: digest,
		RealName:     in.RealName,
		Email:        in.Email,
		Phone:        in.Phone,
		DeptID:       in.DeptID,
		TitleID:      in.TitleID,
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		role, err := s.resolveRegistrationRole(tx, in.RoleCode)
		if err != nil {
			return err
		}
		bound := ""
		if role != nil {
			if _, err := bindRole(tx, user.ID, role.ID); err != nil {
				return err
			}
			bound = role.Code
		}

		_, err = s.recorder.Record(ctx, tx, Entry{
			ActorID:    user.ID,
			Action:     ActionRegisterUser,
			TargetType: models.TargetUser,
			Target:     Single(user.ID),
			NewValue: map[string]interface{}{
				"id":       user.ID,
				"username": user.Username,
				"realName": user.RealName,
				"role":     bound,
			},
			Origin: origin,
		})
		return err
	})
	if err != nil {
		return nil, txFailure(s.log, "register", err)
	}
	auditCommitted(ActionRegisterUser)

	s.log.Info("Registered user %s (%d)", user.Username, user.ID)
	return s.session(ctx, user)
}

func (s *AuthService) resolveRegistrationRole(tx *gorm.DB, requested string) (*models.Role, error) {
	if requested != "" && requested != s.defaultRole && !s.registrable[requested] {
		s.log.Warn("Role %q cannot be requested at registration, using %q", requested, s.defaultRole)
		requested = ""
	}
	if requested != "" {
		role, err := lookupRole(tx, requested)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.log.Warn("Unknown role %q requested at registration, using %q", requested, s.defaultRole)
	}

	role, err := lookupRole(tx, s.defaultRole)
	if errors.Is(err, ErrNotFound) {
		s.log.Warn("Default role %q does not exist; user registered without a role", s.defaultRole)
		return nil, nil
	}
	return role, err
}

// Login never tells the caller which of handle or password was wrong.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := models.GetUserByUsername(strings.TrimSpace(username), s.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		auth.BurnPasswordCheck(password)
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, auth.ErrInvalidCredentials
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return s.session(ctx, user)
}

func (s *AuthService) session(ctx context.Context, user *models.User) (*Session, error) {
	roles, err := s.rbac.EffectiveRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	id := auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     PrimaryRoleCode(roles, s.defaultRole),
	}
	token, expiresAt, err := s.tokens.Issue(id)
	if err != nil {
		return nil, s.log.Error("Failed to sign token", err)
	}

	return &Session{
		User:      user,
		Roles:     codesOf(roles),
		Identity:  id,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Me loads the caller's profile from the database rather than the token claims.
func (s *AuthService) Me(ctx context.Context, id auth.Identity) (*Profile, error) {
	user, err := lookupUser(s.db.WithContext(ctx), id.UserID)
	if err != nil {
		return nil, err
	}
	roles, err := s.rbac.EffectiveRoles(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	perms, err := s.rbac.EffectivePermissions(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	return &Profile{User: user, Roles: codesOf(roles), Permissions: codes}, nil
}
