package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("k", 40))
	t.Setenv("WORKFLOW_STRICT_TRANSITIONS", "true")
	t.Setenv("POSTGRES_STATEMENT_TIMEOUT", "3s")
	t.Setenv("WORKFLOW_REGISTRABLE_ROLES", " teacher, ,reviewer ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 500, cfg.Workflow.MaxBatchSize)
	assert.Equal(t, "teacher", cfg.Workflow.DefaultRole)
	assert.True(t, cfg.Workflow.StrictTransitions)
	assert.Equal(t, 3*time.Second, cfg.Database.StatementTimeout)
	assert.Contains(t, cfg.Database.DSN(), "statement_timeout=3000")
	assert.Equal(t, []string{"teacher", "reviewer"}, cfg.Workflow.RegistrableRoles)
	assert.Equal(t, 10, cfg.Login.MaxAttempts)
}

func TestTestConfigIsValid(t *testing.T) {
	assert.NoError(t, LoadTestConfig().Validate())
}

func TestSaveRedactsSecrets(t *testing.T) {
	cfg := LoadTestConfig()
	path := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), cfg.JWT.Secret)
	assert.Equal(t, "test-secret-test-secret-test-secret-0123", cfg.JWT.Secret)
}
