package handlers

import (
	"errors"
	"net/http"
	"time"

	"researchhub/internal/api/validator"
	"researchhub/internal/auth"
	"researchhub/internal/services"
	"researchhub/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

var errLog = logger.New("HTTP")

// ErrTooManyAttempts is returned when the login throttle trips.
var ErrTooManyAttempts = errors.New("too many attempts, try again later")

// statusFor maps domain errors to a status code and a caller-safe message.
func statusFor(err error) (int, interface{}) {
	var (
		he *echo.HTTPError
		ve validator.ValidationErrors
		fe *services.FieldError
	)

	switch {
	case errors.As(err, &he):
		return he.Code, he.Message
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Fields()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "insufficient permissions"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &fe):
		return http.StatusBadRequest, map[string]string{fe.Field: fe.Reason}
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// HTTPErrorHandler renders every error as {error, code, time}.
func HTTPErrorHandler(err error, c echo.Context) {
	code, message := statusFor(err)
	if code >= http.StatusInternalServerError {
		errLog.Warn("%s %s failed: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]interface{}{
			"error": message,
			"code":  code,
			"time":  time.Now().Format(time.RFC3339),
		})
	}
	if err != nil {
		c.Echo().Logger.Error(err)
	}
}
