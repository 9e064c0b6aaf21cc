package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/infrastructure/auth"
	"veilchat-server/chat-api/internal/infrastructure/metrics"
	"veilchat-server/chat-api/internal/interfaces/httpserver/requests"
	"veilchat-server/chat-api/internal/interfaces/httpserver/responses"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// ConversationHandler exposes the conversation index and ledger endpoints.
type ConversationHandler struct {
	cfg    *config.Config
	index  *chat.IndexService
	ledger *chat.LedgerService
	log    zerolog.Logger
}

func NewConversationHandler(cfg *config.Config, index *chat.IndexService, ledger *chat.LedgerService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		cfg:    cfg,
		index:  index,
		ledger: ledger,
		log:    log.With().Str("component", "conversation-handler").Logger(),
	}
}

// Create finds or creates the conversation between the caller and the
// requested peer. Requesting an existing pair is not an error; the created
// flag is the only difference in the response.
func (h *ConversationHandler) Create(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "f2a8d5b1-9c4e-4f7a-2d6b-8e1c5f9a3d7b")
		return
	}

	var req requests.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "4c9f2e7b-1a6d-4c3f-8b5e-2d9a6c4f1e8b")
		return
	}

	conv, created, err := h.index.FindOrCreate(c.Request.Context(), caller, req.OtherID)
	if err != nil {
		responses.HandleError(c, err, "failed to find or create conversation")
		return
	}
	if created {
		metrics.ConversationsCreatedTotal.Inc()
	}

	c.JSON(http.StatusOK, responses.NewConversationResponse(conv, created))
}

// List returns every conversation the caller participates in.
func (h *ConversationHandler) List(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "8e3b6d1f-4a9c-4e2b-7f5d-1c8a4e6b9d2f")
		return
	}

	convs, err := h.index.ListByParticipant(c.Request.Context(), caller)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	data := make([]responses.ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		data = append(data, responses.NewConversationResponse(conv, false))
	}
	c.JSON(http.StatusOK, responses.ConversationListResponse{Object: "list", Data: data})
}

// Get returns one conversation the caller belongs to.
func (h *ConversationHandler) Get(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "2d7a4f9c-6e1b-4d8a-3c5f-9b2e7d4a6f1c")
		return
	}

	conv, err := h.index.GetByPublicID(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		responses.HandleError(c, err, "conversation not found")
		return
	}
	c.JSON(http.StatusOK, responses.NewConversationResponse(conv, false))
}

// Messages returns the conversation's message references in append order.
func (h *ConversationHandler) Messages(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "6f1c8b4e-2d7a-4f3c-9e6b-4a1d8f2c5e9b")
		return
	}

	conv, err := h.index.GetByPublicID(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		responses.HandleError(c, err, "conversation not found")
		return
	}

	msgs, err := h.ledger.Messages(c.Request.Context(), conv)
	if err != nil {
		responses.HandleError(c, err, "failed to load messages")
		return
	}

	data := make([]responses.MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		data = append(data, responses.NewMessageResponse(msg))
	}
	c.JSON(http.StatusOK, responses.MessageListResponse{Object: "list", Data: data})
}

// Append adds a sealed message reference to the end of the ledger.
func (h *ConversationHandler) Append(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "9b5e2c8f-7d4a-4b1e-6c3f-8a9d2b5e4c7f")
		return
	}

	var req requests.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "3a8d5f2c-9e6b-4a7d-1f4c-6b3e9a8d5f2c")
		return
	}

	conv, err := h.index.GetByPublicID(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		responses.HandleError(c, err, "conversation not found")
		return
	}

	sentAt := time.Now()
	if req.SentAt != nil {
		sentAt = *req.SentAt
	}

	msg, err := h.ledger.Append(c.Request.Context(), conv, chat.AppendInput{
		Sender:         caller,
		ContentBlobRef: req.ContentBlobRef,
		ContentDigest:  req.ContentDigest,
		MediaBlobRef:   req.MediaBlobRef,
		SentAt:         sentAt,
	})
	if err != nil {
		metrics.RecordAppend("error")
		responses.HandleError(c, err, "failed to append message")
		return
	}
	metrics.RecordAppend("success")

	c.JSON(http.StatusOK, responses.NewMessageResponse(msg))
}

// MarkRead advances the caller's read state up to the requested sequence
// number. Repeating the call is harmless.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	caller := auth.CallerIdentity(c)
	if caller == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "5c2f9b6e-3a8d-4c5f-7b1e-4d6a9c2f8b5e")
		return
	}

	var req requests.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "1e7b4d9a-6c2f-4e8b-3d5a-9f1c6e4b7d2a")
		return
	}

	conv, err := h.index.GetByPublicID(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		responses.HandleError(c, err, "conversation not found")
		return
	}

	if err := h.ledger.MarkReadUpTo(c.Request.Context(), conv, caller, *req.UpToSeq); err != nil {
		responses.HandleError(c, err, "failed to advance read state")
		return
	}
	metrics.ReadMarksTotal.Inc()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
