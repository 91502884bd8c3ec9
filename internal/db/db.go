package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"researchhub/internal/config"
	"researchhub/internal/models"
	console "researchhub/internal/utils/logger"
)

var DB *gorm.DB
var log = console.New("DB")

// GormConfig is shared by the postgres connection and the sqlite test harness.
func GormConfig(level string) *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(gormLogLevel(level)),
		DisableForeignKeyConstraintWhenMigrating: true,
		AllowGlobalUpdate:                        false,
		TranslateError:                           true,
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Connect(cfg *config.Config) error {
	dsn := cfg.Database.DSN()

	log.Info("Connecting to database %s@%s:%d/%s...",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	maxRetries := 5
	var err error
	for i := 0; i < maxRetries; i++ {
		gormCfg := GormConfig(cfg.Database.LogLevel)
		gormCfg.PrepareStmt = true
		DB, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err == nil {
			log.Success("Connected to database")

			sqlDB, err := DB.DB()
			if err != nil {
				return log.Error("Failed to get underlying *sql.DB instance", err)
			}

			sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(time.Hour)
			sqlDB.SetConnMaxIdleTime(time.Minute * 30)

			if err := Migrate(DB); err != nil {
				return log.Error("Failed to run migrations", err)
			}

			log.Success("Migrations completed")
			return nil
		}
		log.Warn("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Second * 5)
	}
	return log.Error("Failed to connect to database", fmt.Errorf("gave up after %d attempts: %w", maxRetries, err))
}

// Migrate creates or updates every table inside one transaction.
func Migrate(db *gorm.DB) error {
	log.Info("Running migrations...")
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(models.All()...)
	})
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}
