package config

import "time"

// LoadTestConfig returns a fixed configuration that never touches the environment.
func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8081,
			RequestTimeout: 5 * time.Second,
			RateLimit:      1000,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "researchhub_test",
			User:     "test_user",
			Password: "test_password",
			SSLMode:  "disable",
			LogLevel: "silent",
		},
		JWT: JWTConfig{
			Secret: "test-secret-test-secret-test-secret-0123",
			TTL:    7 * 24 * time.Hour,
			Issuer: "researchhub-test",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Workflow: WorkflowConfig{
			MaxBatchSize:     500,
			DefaultRole:      "teacher",
			RegistrableRoles: []string{"teacher", "research_admin"},
		},
		Tasks: TasksConfig{
			Concurrency:  1,
			ReminderCron: "0 8 * * 1-5",
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      time.Minute,
		},
	}
}
