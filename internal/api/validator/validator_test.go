package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,research_status"`
	Role   string `json:"role_code" validate:"omitempty,code"`
}

func TestResearchStatusTag(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&statusRequest{Status: "approved"}))
	assert.NoError(t, v.Validate(&statusRequest{Status: " Pending "}))

	err := v.Validate(&statusRequest{Status: "archived", Role: "Teacher!"})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	fields := ve.Fields()
	assert.Contains(t, fields["status"], "draft, pending, approved, rejected")
	assert.Contains(t, fields, "role_code")
	assert.Contains(t, ve.Error(), "status")
}

func TestRequiredUsesJSONName(t *testing.T) {
	err := NewValidator().Validate(&statusRequest{})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{"status": "status is required"}, ve.Fields())
}
