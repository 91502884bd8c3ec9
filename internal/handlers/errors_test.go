package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"researchhub/internal/auth"
	"researchhub/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorHandlerMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{auth.ErrUnauthenticated, http.StatusUnauthorized},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: research item 9", services.ErrNotFound), http.StatusNotFound},
		{&services.FieldError{Field: "status", Reason: "is required"}, http.StatusBadRequest},
		{fmt.Errorf("%w: username taken", services.ErrConflict), http.StatusConflict},
		{ErrTooManyAttempts, http.StatusTooManyRequests},
		{echo.NewHTTPError(http.StatusBadRequest, "bad"), http.StatusBadRequest},
		{fmt.Errorf("%w: create: pq: connection reset", services.ErrTransaction), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		HTTPErrorHandler(tc.err, c)

		require.Equal(t, tc.code, rec.Code, tc.err.Error())
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.EqualValues(t, tc.code, body["code"])
		assert.NotEmpty(t, body["time"])
	}
}

func TestServerErrorsHideCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	HTTPErrorHandler(fmt.Errorf("%w: create: password=hunter2", services.ErrTransaction), c)

	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Contains(t, rec.Body.String(), http.StatusText(http.StatusInternalServerError))
}

func TestFieldErrorNamesField(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", nil), rec)

	HTTPErrorHandler(fmt.Errorf("wrapped: %w", &services.FieldError{Field: "id", Reason: "must be a positive integer"}), c)

	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "must be a positive integer", body.Error["id"])
}
