package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation is the persistence model for a participant-pair conversation.
// PairKey is the canonical ordering-independent key for the pair and carries
// the uniqueness guarantee for find-or-create.
type Conversation struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	PublicID      string `gorm:"uniqueIndex;size:64;not null"`
	PairKey       string `gorm:"uniqueIndex;size:160;not null"`
	ParticipantA  string `gorm:"index;size:70;not null"`
	ParticipantB  string `gorm:"index;size:70;not null"`
	LastMessageAt *time.Time
	Metadata      datatypes.JSONType[map[string]string]
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is the persistence model for a ledger entry. Seq is dense and
// unique within a conversation. MediaDigest is nullable and currently
// never verified on fetch.
type Message struct {
	ID             uint    `gorm:"primaryKey;autoIncrement"`
	PublicID       string  `gorm:"uniqueIndex;size:64;not null"`
	ConversationID uint    `gorm:"uniqueIndex:idx_conversation_seq;not null"`
	Seq            int64   `gorm:"uniqueIndex:idx_conversation_seq;not null"`
	Sender         string  `gorm:"index;size:70;not null"`
	ContentBlobRef string  `gorm:"size:255;not null"`
	ContentDigest  string  `gorm:"size:64;not null"`
	MediaBlobRef   *string `gorm:"size:255"`
	MediaDigest    *string `gorm:"size:64"`
	SentAt         time.Time
	IsRead         bool `gorm:"index;not null;default:false"`
	CreatedAt      time.Time
}

func (Message) TableName() string {
	return "messages"
}
