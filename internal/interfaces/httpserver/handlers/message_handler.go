package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/domain/envelope"
	"veilchat-server/chat-api/internal/infrastructure/auth"
	"veilchat-server/chat-api/internal/infrastructure/metrics"
	"veilchat-server/chat-api/internal/interfaces/httpserver/requests"
	"veilchat-server/chat-api/internal/interfaces/httpserver/responses"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// MessageHandler exposes the server-side encryption pipeline for clients
// that do not run their own.
type MessageHandler struct {
	cfg      *config.Config
	index    *chat.IndexService
	pipeline *envelope.Pipeline
	log      zerolog.Logger
}

func NewMessageHandler(cfg *config.Config, index *chat.IndexService, pipeline *envelope.Pipeline, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		cfg:      cfg,
		index:    index,
		pipeline: pipeline,
		log:      log.With().Str("component", "message-handler").Logger(),
	}
}

// Seal encrypts and stores a plaintext for a conversation the caller
// belongs to, returning the blob reference and digest to append to the
// ledger.
func (h *MessageHandler) Seal(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "7d4b1f8c-5e2a-4d9b-6f3c-2a8e5d1b4f7c")
		return
	}

	var req requests.SealMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "b8f5c2e9-4a7d-4b6f-1c9e-5d2a8b4f7c1e")
		return
	}

	conv, err := h.index.GetByPublicID(c.Request.Context(), req.ConversationID, caller)
	if err != nil {
		responses.HandleError(c, err, "conversation not found")
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.PlaintextB64)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "plaintext must be base64-encoded", "e2c9f6b3-8d1a-4e4c-7a5f-9b6d3e2c8f1a")
		return
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = h.cfg.DefaultThreshold
	}

	participantA, participantB := conv.Participants()
	sealed, err := h.pipeline.EncryptAndStore(c.Request.Context(), plaintext, conv.PublicID, []string{participantA, participantB}, threshold)
	if err != nil {
		metrics.RecordSealOperation("seal", "error")
		responses.HandleError(c, err, "could not secure message")
		return
	}
	metrics.RecordSealOperation("seal", "success")

	c.JSON(http.StatusOK, responses.SealResponse{BlobRef: sealed.BlobRef, Digest: sealed.Digest})
}

// Open fetches, decrypts and verifies a stored message body. A digest
// mismatch withholds the plaintext entirely.
func (h *MessageHandler) Open(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "a6e3d9f2-1c8b-4a5e-8d4f-3b7c6a9e2d5f")
		return
	}

	var req requests.OpenMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "d4a7c1e8-6f3b-4d2a-9e5c-7b1f4d8a3c6e")
		return
	}

	conv, err := h.index.GetByPublicID(c.Request.Context(), req.ConversationID, caller)
	if err != nil {
		responses.HandleError(c, err, "conversation not found")
		return
	}

	participantA, participantB := conv.Participants()
	plaintext, err := h.pipeline.FetchAndDecrypt(c.Request.Context(), req.BlobRef, conv.PublicID, []string{participantA, participantB}, auth.SessionAuth(c), req.ExpectedDigest)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeIntegrityMismatch) {
			metrics.IntegrityFailuresTotal.Inc()
		}
		metrics.RecordSealOperation("open", "error")
		responses.HandleError(c, err, "could not retrieve message")
		return
	}
	metrics.RecordSealOperation("open", "success")

	c.JSON(http.StatusOK, responses.OpenResponse{PlaintextB64: base64.StdEncoding.EncodeToString(plaintext)})
}
