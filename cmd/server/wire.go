//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/domain/envelope"
	"veilchat-server/chat-api/internal/infrastructure/auth"
	"veilchat-server/chat-api/internal/infrastructure/crontab"
	"veilchat-server/chat-api/internal/infrastructure/repository/chatrepo"
	"veilchat-server/chat-api/internal/interfaces/httpserver"
)

var chatSet = wire.NewSet(
	chatrepo.New,
	wire.Bind(new(chat.Repository), new(*chatrepo.Repository)),
	chat.NewIndexService,
	chat.NewLedgerService,
	provideBlobTransport,
	provideEncrypter,
	envelope.NewPipeline,
)

// CreateApplication assembles the chat API with Wire.
func CreateApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		provideLogger,
		auth.NewValidator,
		newGormDB,
		chatSet,
		crontab.NewCrontab,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}
