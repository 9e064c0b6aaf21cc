package requests

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"veilchat-server/chat-api/internal/domain/chat"
)

// RegisterValidations installs the custom identity check on gin's binding
// validator. Called once at server construction.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
			return chat.ValidIdentity(fl.Field().String())
		})
	}
}

// CreateConversationRequest starts or retrieves the conversation between the
// caller and OtherID.
type CreateConversationRequest struct {
	OtherID  string            `json:"other_id" binding:"required,identity"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AppendMessageRequest appends a sealed message reference to a conversation.
// The blob references come from the caller's own encryption pipeline.
type AppendMessageRequest struct {
	ContentBlobRef string     `json:"content_blob_ref" binding:"required"`
	ContentDigest  string     `json:"content_digest" binding:"required,len=64,hexadecimal"`
	MediaBlobRef   *string    `json:"media_blob_ref,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// MarkReadRequest advances the caller's read state. UpToSeq is a pointer so
// zero is distinguishable from absent.
type MarkReadRequest struct {
	UpToSeq *int `json:"up_to_seq" binding:"required,min=0"`
}

// SealMessageRequest asks the server-side pipeline to encrypt and store a
// plaintext for a conversation the caller belongs to.
type SealMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	PlaintextB64   string `json:"plaintext_b64" binding:"required,base64"`
	Threshold      int    `json:"threshold,omitempty" binding:"omitempty,min=1"`
}

// OpenMessageRequest asks the server-side pipeline to fetch, decrypt and
// verify a stored message body.
type OpenMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	BlobRef        string `json:"blob_ref" binding:"required"`
	ExpectedDigest string `json:"expected_digest" binding:"required,len=64,hexadecimal"`
}
