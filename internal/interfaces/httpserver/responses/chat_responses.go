package responses

import (
	"time"

	"veilchat-server/chat-api/internal/domain/chat"
)

// ConversationResponse is the public shape of a conversation.
type ConversationResponse struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Participants  []string          `json:"participants"`
	Created       bool              `json:"created"`
	LastMessageAt *time.Time        `json:"last_message_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// MessageResponse is the public shape of one ledger entry. Only references
// and the digest travel here, never message bodies.
type MessageResponse struct {
	ID             string    `json:"id"`
	Object         string    `json:"object"`
	Seq            int       `json:"seq"`
	Sender         string    `json:"sender"`
	ContentBlobRef string    `json:"content_blob_ref"`
	ContentDigest  string    `json:"content_digest"`
	MediaBlobRef   *string   `json:"media_blob_ref,omitempty"`
	SentAt         time.Time `json:"sent_at"`
	IsRead         bool      `json:"is_read"`
}

// MessageListResponse wraps an ordered message sequence.
type MessageListResponse struct {
	Object string            `json:"object"`
	Data   []MessageResponse `json:"data"`
}

// ConversationListResponse wraps the caller's conversations.
type ConversationListResponse struct {
	Object string                 `json:"object"`
	Data   []ConversationResponse `json:"data"`
}

// SealResponse is the result of a server-side encrypt-and-store.
type SealResponse struct {
	BlobRef string `json:"blob_ref"`
	Digest  string `json:"digest"`
}

// OpenResponse carries a decrypted, verified message body.
type OpenResponse struct {
	PlaintextB64 string `json:"plaintext_b64"`
}

// NewConversationResponse maps a domain conversation.
func NewConversationResponse(conv *chat.Conversation, created bool) ConversationResponse {
	return ConversationResponse{
		ID:            conv.PublicID,
		Object:        conv.Object,
		Participants:  []string{conv.ParticipantA, conv.ParticipantB},
		Created:       created,
		LastMessageAt: conv.LastMessageAt,
		Metadata:      conv.Metadata,
		CreatedAt:     conv.CreatedAt,
	}
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *chat.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.PublicID,
		Object:         msg.Object,
		Seq:            msg.Seq,
		Sender:         msg.Sender,
		ContentBlobRef: msg.ContentBlobRef,
		ContentDigest:  msg.ContentDigest,
		MediaBlobRef:   msg.MediaBlobRef,
		SentAt:         msg.SentAt,
		IsRead:         msg.IsRead,
	}
}
