package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"azure-face-go/config"
	"azure-face-go/internal/core/models"

	"github.com/glebarez/sqlite" // pure Go SQLite driver
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database connection
var DB *gorm.DB

// Initialize opens the database connection and runs migrations
func Initialize(cfg *config.Config) error {
	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			log.Errorf("Failed to create database directory '%s': %v", dbDir, err)
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Route GORM logging through the configured logrus logger
	gormLogger := logger.New(
		log.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second * 2,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var err error
	log.Infof("Connecting to database: %s", cfg.DB.File)

	DB, err = gorm.Open(sqlite.Open(cfg.DB.File), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Errorf("Failed to connect to database: %v", err)
		return fmt.Errorf("database connection failed: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Database connection established successfully")

	log.Info("Running database migrations...")
	if err := DB.AutoMigrate(
		&models.ServiceEvent{},
	); err != nil {
		log.Errorf("Database migration failed: %v", err)
		return fmt.Errorf("database migration failed: %w", err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}
