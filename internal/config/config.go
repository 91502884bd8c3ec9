package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinJWTSecretLength is the shortest signing secret Load accepts.
const MinJWTSecretLength = 32

var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Workflow WorkflowConfig
	Tasks    TasksConfig
	Login    LoginConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	PublicURL      string
	RequestTimeout time.Duration
	RateLimit      float64
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	StatementTimeout time.Duration
	MaxOpenConns     int
	MaxIdleConns     int
	LogLevel         string
}

// DSN renders the postgres connection string. The statement timeout is sent
// as a runtime parameter so every session enforces it.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
	if d.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", d.StatementTimeout.Milliseconds())
	}
	return dsn
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type StorageConfig struct {
	Provider string // s3 or none
	S3       S3Config
}

type S3Config struct {
	BucketName string `env:"S3_BUCKET_NAME"`
	Endpoint   string `env:"S3_ENDPOINT"`
	Region     string `env:"S3_REGION"`
	AccessKey  string `env:"S3_ACCESS_KEY"`
	SecretKey  string `env:"S3_SECRET_KEY"`
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

type WorkflowConfig struct {
	// StrictTransitions rejects status edges outside the transition table.
	StrictTransitions bool
	MaxBatchSize      int
	DefaultRole       string
	// RegistrableRoles may be requested at self-registration.
	RegistrableRoles  []string
}

type TasksConfig struct {
	Enabled      bool
	Concurrency  int
	ReminderCron string
}

type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// AdminConfig seeds the first system administrator.
type AdminConfig struct {
	Username     string
	Password     string
	RealName     string
	Email        string
	PanelEnabled bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			PublicURL:      getEnv("PUBLIC_URL", "http://localhost:8080"),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			RateLimit:      getEnvAsFloat("SERVER_RATE_LIMIT", 20),
		},
		Database: DatabaseConfig{
			Host:             getEnv("POSTGRES_HOST", "localhost"),
			Port:             getEnvAsInt("POSTGRES_PORT", 5432),
			User:             getEnv("POSTGRES_USER", "postgres"),
			Password:         getEnv("POSTGRES_PASSWORD", ""),
			Name:             getEnv("POSTGRES_DB", "researchhub"),
			SSLMode:          getEnv("POSTGRES_SSLMODE", "disable"),
			StatementTimeout: getEnvAsDuration("POSTGRES_STATEMENT_TIMEOUT", 15*time.Second),
			MaxOpenConns:     getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 50),
			MaxIdleConns:     getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 10),
			LogLevel:         getEnv("POSTGRES_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getEnvAsDuration("JWT_TTL", 7*24*time.Hour),
			Issuer: getEnv("JWT_ISSUER", "researchhub"),
		},
		Storage: StorageConfig{
			Provider: getEnv("STORAGE_PROVIDER", "none"),
			S3: S3Config{
				BucketName: getEnv("S3_BUCKET_NAME", ""),
				Endpoint:   getEnv("S3_ENDPOINT", ""),
				Region:     getEnv("S3_REGION", ""),
				AccessKey:  getEnv("S3_ACCESS_KEY", ""),
				SecretKey:  getEnv("S3_SECRET_KEY", ""),
			},
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Workflow: WorkflowConfig{
			StrictTransitions: getEnvAsBool("WORKFLOW_STRICT_TRANSITIONS", false),
			MaxBatchSize:      getEnvAsInt("WORKFLOW_MAX_BATCH_SIZE", 500),
			DefaultRole:       getEnv("WORKFLOW_DEFAULT_ROLE", "teacher"),
			RegistrableRoles:  getEnvAsList("WORKFLOW_REGISTRABLE_ROLES", []string{"teacher", "research_admin"}),
		},
		Tasks: TasksConfig{
			Enabled:      getEnvAsBool("TASKS_ENABLED", true),
			Concurrency:  getEnvAsInt("TASKS_CONCURRENCY", 5),
			ReminderCron: getEnv("TASKS_REMINDER_CRON", "0 8 * * 1-5"),
		},
		Login: LoginConfig{
			MaxAttempts: getEnvAsInt("LOGIN_MAX_ATTEMPTS", 10),
			Window:      getEnvAsDuration("LOGIN_WINDOW", 5*time.Minute),
		},
		Admin: AdminConfig{
			Username:     getEnv("SYS_ADMIN_USERNAME", ""),
			Password:     getEnv("SYS_ADMIN_PASSWORD", ""),
			RealName:     getEnv("SYS_ADMIN_REAL_NAME", "System Administrator"),
			Email:        getEnv("SYS_ADMIN_EMAIL", ""),
			PanelEnabled: getEnvAsBool("ADMIN_PANEL_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingSecret
	}
	if len(c.JWT.Secret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", MinJWTSecretLength, len(c.JWT.Secret))
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	if c.Workflow.MaxBatchSize <= 0 {
		return fmt.Errorf("WORKFLOW_MAX_BATCH_SIZE must be positive, got %d", c.Workflow.MaxBatchSize)
	}
	if c.Workflow.DefaultRole == "" {
		return errors.New("WORKFLOW_DEFAULT_ROLE must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Save writes the config as JSON with secrets blanked out.
func (c *Config) Save(path string) error {
	redacted := *c
	redacted.JWT.Secret = ""
	redacted.Database.Password = ""
	redacted.Redis.Password = ""
	redacted.Storage.S3.SecretKey = ""
	redacted.Admin.Password = ""

	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
