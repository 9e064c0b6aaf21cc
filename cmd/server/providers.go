package main

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/envelope"
	"veilchat-server/chat-api/internal/infrastructure/blobstore"
	"veilchat-server/chat-api/internal/infrastructure/database"
	"veilchat-server/chat-api/internal/infrastructure/logger"
	"veilchat-server/chat-api/internal/infrastructure/sealclient"
)

func provideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

func newGormDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// provideBlobTransport selects the blob store backend from configuration.
func provideBlobTransport(ctx context.Context, cfg *config.Config, log zerolog.Logger) (envelope.BlobTransport, error) {
	if cfg.IsS3BlobStore() {
		return blobstore.NewS3Store(ctx, cfg, log)
	}
	return blobstore.NewHTTPStore(cfg, log), nil
}

func provideEncrypter(cfg *config.Config, log zerolog.Logger) envelope.Encrypter {
	return sealclient.NewClient(cfg, log)
}
