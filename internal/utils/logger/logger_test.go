package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(&bytes.Buffer{})
		SetLevel(LevelInfo)
	})
	return buf
}

func TestLoggerWritesServiceAndLevel(t *testing.T) {
	buf := capture(t, LevelDebug)
	l := New("RESEARCH")

	l.Info("created item %d", 7)

	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "RESEARCH")
	assert.Contains(t, buf.String(), "created item 7")
	assert.Contains(t, buf.String(), "logger_test.go")
}

func TestLoggerDropsBelowLevel(t *testing.T) {
	buf := capture(t, LevelWarn)
	l := New("RBAC")

	l.Info("hidden")
	l.Debug("hidden too")
	l.Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestErrorWrapsCause(t *testing.T) {
	capture(t, LevelDebug)
	cause := errors.New("connection refused")

	err := New("DB").Error("failed to connect", cause)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to connect: connection refused", err.Error())
}

func TestErrorFormatsArgs(t *testing.T) {
	buf := capture(t, LevelDebug)
	cause := errors.New("timeout")

	err := New("RESEARCH").Error("Transaction rolled back during %s", cause, "create")

	assert.Equal(t, "Transaction rolled back during create: timeout", err.Error())
	assert.Contains(t, buf.String(), "Transaction rolled back during create: timeout")
	assert.NotContains(t, buf.String(), "EXTRA")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
