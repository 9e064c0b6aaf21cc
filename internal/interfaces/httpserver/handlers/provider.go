package handlers

import (
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/domain/envelope"
)

// Provider wires HTTP handlers.
type Provider struct {
	Conversation *ConversationHandler
	Message      *MessageHandler
}

func NewProvider(cfg *config.Config, index *chat.IndexService, ledger *chat.LedgerService, pipeline *envelope.Pipeline, log zerolog.Logger) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(cfg, index, ledger, log),
		Message:      NewMessageHandler(cfg, index, pipeline, log),
	}
}
