package database

import (
	"gorm.io/gorm"

	"veilchat-server/chat-api/internal/infrastructure/database/entities"
	"veilchat-server/chat-api/internal/infrastructure/logger"
)

// Migrate runs auto-migration for the chat schema
func Migrate(db *gorm.DB) error {
	log := logger.GetLogger()
	log.Info().Msg("running database migrations")

	if err := db.AutoMigrate(
		&entities.Conversation{},
		&entities.Message{},
	); err != nil {
		log.Error().
			Str("error_code", "b2f7d4a1-6c3e-4b9a-8d5f-1e7c4a9b2d6e").
			Err(err).
			Msg("database migration failed")
		return err
	}

	log.Info().Msg("database migrations completed")
	return nil
}
