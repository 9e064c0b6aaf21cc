package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"veilchat-server/chat-api/internal/infrastructure/logger"
)

// Config holds database configuration
type Config struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        gormlogger.LogLevel
}

// Connect creates a new database connection with the given configuration
func Connect(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		log := logger.GetLogger()
		log.Error().
			Str("error_code", "4e8b1c6f-9a2d-4e5b-8c1f-3a6d9b2e5c8f").
			Err(err).
			Msg("unable to connect to database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log := logger.GetLogger()
	log.Info().Msg("connected to database")
	return db, nil
}
