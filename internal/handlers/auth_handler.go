package handlers

import (
	"net/http"
	"strings"

	"researchhub/internal/api/middleware"
	"researchhub/internal/auth"
	"researchhub/internal/services"
	"researchhub/internal/utils"
	"researchhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	auth     *services.AuthService
	throttle LoginThrottle
	log      *logger.Logger
}

// NewAuthHandler builds the handler. A nil throttle disables login limiting.
func NewAuthHandler(authService *services.AuthService, throttle LoginThrottle) *AuthHandler {
	return &AuthHandler{auth: authService, throttle: throttle, log: logger.New("AuthHandler")}
}

type RegisterRequest struct {
	Username string  `json:"username" validate:"required,max=50"`
	Password string  `json:"password" validate:"required"`
	RealName string  `json:"real_name" validate:"required,max=50"`
	Email    string  `json:"email" validate:"omitempty,email"`
	Phone    string  `json:"phone" validate:"omitempty,max=20"`
	DeptID   *uint64 `json:"dept_id"`
	TitleID  *uint64 `json:"title_id"`
	RoleCode string  `json:"role_code" validate:"omitempty,code"`
	Role     string  `json:"role" validate:"omitempty,code"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account and signs it in.
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	roleCode := req.RoleCode
	if roleCode == "" {
		roleCode = req.Role
	}

	session, err := h.auth.Register(c.Request().Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		RealName: req.RealName,
		Email:    req.Email,
		Phone:    req.Phone,
		DeptID:   req.DeptID,
		TitleID:  req.TitleID,
		RoleCode: roleCode,
	}, utils.GetIPAddress(c.Request()))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, session)
}

// Login exchanges a handle and password for a token. Every credential failure
// looks the same to the caller.
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	key := strings.ToLower(strings.TrimSpace(req.Username))
	if h.throttle != nil {
		allowed, err := h.throttle.Allow(ctx, key)
		if err != nil {
			// fail open
			h.log.Warn("Login throttle unavailable: %v", err)
		} else if !allowed {
			return ErrTooManyAttempts
		}
	}

	session, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	if h.throttle != nil {
		if err := h.throttle.Reset(ctx, key); err != nil {
			h.log.Warn("Failed to reset login throttle for %s: %v", key, err)
		}
	}
	return c.JSON(http.StatusOK, session)
}

// GetMe returns the caller's profile with live roles and permissions.
// @Router /api/v1/users/me [get]
func (h *AuthHandler) GetMe(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}
	profile, err := h.auth.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
