package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level orders log output; messages below the active level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	INFO_EMOJI    = "ℹ️ "
	SUCCESS_EMOJI = "✅ "
	WARN_EMOJI    = "⚠️ "
	ERROR_EMOJI   = "❌ "
	DEBUG_EMOJI   = "🔍 "
)

var (
	mu     sync.RWMutex
	out    io.Writer = color.Output
	active           = levelFromEnv(os.Getenv("LOG_LEVEL"))
)

type Logger struct {
	serviceName string
}

func New(serviceName string) *Logger {
	return &Logger{
		serviceName: serviceName,
	}
}

// SetOutput redirects every logger in the process. Tests use it to silence output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	active = level
}

// ParseLevel maps debug|info|warn|error onto a Level, defaulting to info.
func ParseLevel(s string) Level {
	return levelFromEnv(s)
}

func levelFromEnv(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) formatMessage(level, emoji, msg string) string {
	_, file, line, _ := runtime.Caller(3)
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	return fmt.Sprintf("%s | %s | %s | %s:%d | %s | %s",
		emoji,
		timestamp,
		level,
		filepath.Base(file),
		line,
		l.serviceName,
		msg,
	)
}

func (l *Logger) write(lvl Level, name, emoji string, attr color.Attribute, msg string) {
	mu.RLock()
	w, min := out, active
	mu.RUnlock()

	if lvl < min {
		return
	}
	_, _ = color.New(attr).Fprintln(w, l.formatMessage(name, emoji, msg))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.write(LevelInfo, "INFO", INFO_EMOJI, color.FgCyan, fmt.Sprintf(msg, args...))
}

func (l *Logger) Success(msg string, args ...interface{}) {
	l.write(LevelInfo, "SUCCESS", SUCCESS_EMOJI, color.FgGreen, fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.write(LevelWarn, "WARN", WARN_EMOJI, color.FgYellow, fmt.Sprintf(msg, args...))
}

// Error formats msg with args, logs it with err appended and returns err wrapped with the message.
func (l *Logger) Error(msg string, err error, args ...interface{}) error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	text := msg
	if err != nil {
		text = fmt.Sprintf("%s: %v", msg, err)
	}
	l.write(LevelError, "ERROR", ERROR_EMOJI, color.FgRed, text)
	return fmt.Errorf("%s: %w", msg, err)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", DEBUG_EMOJI, color.FgMagenta, fmt.Sprintf(msg, args...))
}
