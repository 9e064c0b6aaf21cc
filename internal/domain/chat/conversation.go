package chat

import (
	"context"
	"strings"
	"time"
)

// ===============================================
// Conversation Types
// ===============================================

// Conversation is a private channel between exactly two participant
// identities. The participants are stored in creation order but the pair is
// semantically unordered: lookups succeed regardless of argument order.
type Conversation struct {
	ID            uint              `json:"-"`
	PublicID      string            `json:"id"` // string ID like "conv_abc123"
	Object        string            `json:"object"`
	ParticipantA  string            `json:"participant_a"`
	ParticipantB  string            `json:"participant_b"`
	LastMessageAt *time.Time        `json:"last_message_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Message is one entry in a conversation's append-only sequence. The body is
// never stored here: ContentBlobRef points at the encrypted blob off-ledger
// and ContentDigest is the SHA-256 of the plaintext, checked on every read.
// IsRead is the only mutable field once a message has been appended.
type Message struct {
	ID             uint      `json:"-"`
	PublicID       string    `json:"id"` // string ID like "msg_abc123"
	Object         string    `json:"object"`
	ConversationID uint      `json:"-"`
	Seq            int       `json:"seq"`
	Sender         string    `json:"sender"`
	ContentBlobRef string    `json:"content_blob_ref"`
	ContentDigest  string    `json:"content_digest"`
	MediaBlobRef   *string   `json:"media_blob_ref,omitempty"`
	MediaDigest    *string   `json:"media_digest,omitempty"`
	SentAt         time.Time `json:"sent_at"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ===============================================
// Repository
// ===============================================

type ConversationFilter struct {
	ID          *uint
	PublicID    *string
	Participant *string
}

// Repository is the persistence substrate boundary. Every mutating operation
// must execute as a single atomic transaction so that concurrent callers are
// serialized by the store's transactional ordering, not in-process locks.
type Repository interface {
	// CreateIfAbsent inserts the conversation unless a conversation for the
	// same unordered pair already exists, in which case the existing one is
	// returned with created=false. Concurrent calls for the same pair have
	// at-most-one-winner semantics.
	CreateIfAbsent(ctx context.Context, conv *Conversation) (*Conversation, bool, error)
	FindByPair(ctx context.Context, a, b string) (*Conversation, error)
	FindByFilter(ctx context.Context, filter ConversationFilter) ([]*Conversation, error)
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)

	// AppendMessage assigns the next sequence number, inserts the message and
	// advances the conversation's last-message timestamp, all in one
	// transaction. The assigned sequence number is returned on the message.
	AppendMessage(ctx context.Context, conversationID uint, msg *Message) error
	// MarkReadUpTo flips IsRead on every message with Seq <= upToSeq whose
	// sender differs from reader. Out-of-range upToSeq values clamp to the end
	// of the sequence; repeated calls are no-ops.
	MarkReadUpTo(ctx context.Context, conversationID uint, reader string, upToSeq int) error
	Messages(ctx context.Context, conversationID uint) ([]*Message, error)

	CountConversations(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
}

// ===============================================
// Factory and helpers
// ===============================================

// NewConversation creates a conversation between the two participants in
// creation order.
func NewConversation(publicID, participantA, participantB string, metadata map[string]string) *Conversation {
	now := time.Now()

	if metadata == nil {
		metadata = make(map[string]string)
	}

	return &Conversation{
		PublicID:     publicID,
		Object:       "conversation",
		ParticipantA: participantA,
		ParticipantB: participantB,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Participants returns the pair in creation order.
func (c *Conversation) Participants() (string, string) {
	return c.ParticipantA, c.ParticipantB
}

// IsParticipant reports whether id is one of the conversation's two members.
func (c *Conversation) IsParticipant(id string) bool {
	return id == c.ParticipantA || id == c.ParticipantB
}

// Peer returns the other participant. Empty string when id is not a member.
func (c *Conversation) Peer(id string) string {
	switch id {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}

// PairKey canonicalizes an unordered participant pair into a single lookup
// key. Sorting the identities first means one unique index covers both
// argument orders, so there is no mirrored second entry that could be written
// without its twin.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ":" + b
}
