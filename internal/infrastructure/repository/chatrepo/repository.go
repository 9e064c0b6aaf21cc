package chatrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/infrastructure/database/entities"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// Repository is the GORM-backed implementation of chat.Repository. Mutating
// operations rely on the database for ordering under concurrency, never on
// in-process locks.
type Repository struct {
	db *gorm.DB
}

var _ chat.Repository = (*Repository)(nil)

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateIfAbsent inserts conv unless the unordered pair already has a
// conversation. The pair_key unique index is the arbiter under concurrency:
// the insert carries ON CONFLICT DO NOTHING, so when two callers race exactly
// one row lands and the loser reads the winner's row afterwards. A plain
// insert-then-refetch inside one transaction would not work here: the unique
// violation aborts the transaction on Postgres and every later statement in
// it fails.
func (r *Repository) CreateIfAbsent(ctx context.Context, conv *chat.Conversation) (*chat.Conversation, bool, error) {
	pairKey := chat.PairKey(conv.ParticipantA, conv.ParticipantB)

	var existing entities.Conversation
	err := r.db.WithContext(ctx).Where("pair_key = ?", pairKey).First(&existing).Error
	if err == nil {
		return toDomainConversation(&existing), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to look up conversation", err, "a7c2e9d4-3f1b-4a8c-9e6d-2b5f8c1a4e7d")
	}

	entity := toEntityConversation(conv, pairKey)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "pair_key"}}, DoNothing: true}).
		Create(entity)
	if res.Error != nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to create conversation", res.Error, "3e6b9d2c-8f4a-4e1b-7d5c-2a9f6b3e8d1c")
	}
	if res.RowsAffected > 0 {
		return toDomainConversation(entity), true, nil
	}

	// Lost the race; the winner's committed row is visible to a fresh query.
	var winner entities.Conversation
	if err := r.db.WithContext(ctx).Where("pair_key = ?", pairKey).First(&winner).Error; err != nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to load conversation after create race", err, "9c4f1b7e-5a2d-4c8f-3b6e-8d1a4c7f2b5e")
	}
	return toDomainConversation(&winner), false, nil
}

func (r *Repository) FindByPair(ctx context.Context, a, b string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", chat.PairKey(a, b)).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to look up conversation", err, "d1f8b3a6-7e2c-4d9b-8a5f-3c6e9b2d5a8c")
	}
	return toDomainConversation(&entity), nil
}

func (r *Repository) FindByFilter(ctx context.Context, filter chat.ConversationFilter) ([]*chat.Conversation, error) {
	query := r.db.WithContext(ctx).Model(&entities.Conversation{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.PublicID != nil {
		query = query.Where("public_id = ?", *filter.PublicID)
	}
	if filter.Participant != nil {
		query = query.Where("participant_a = ? OR participant_b = ?", *filter.Participant, *filter.Participant)
	}

	var rows []entities.Conversation
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to list conversations", err, "e4a9c2f7-1b6d-4e3a-9c8b-5d2f7a4c9e1b")
	}

	conversations := make([]*chat.Conversation, 0, len(rows))
	for i := range rows {
		conversations = append(conversations, toDomainConversation(&rows[i]))
	}
	return conversations, nil
}

func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to look up conversation", err, "f7b2d5a8-4c1e-4b6d-8f3a-9e6c2b5d8a1f")
	}
	return toDomainConversation(&entity), nil
}

// AppendMessage assigns the next sequence number and inserts the message in
// one transaction. Sequence numbers are zero-based dense insertion indices:
// the first message in a conversation lands at seq 0. The conversation row is
// locked for the duration so concurrent appends serialize and no index is
// skipped or duplicated.
func (r *Repository) AppendMessage(ctx context.Context, conversationID uint, msg *chat.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv entities.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&conv, conversationID).Error; err != nil {
			return err
		}

		var maxSeq int64
		if err := tx.Model(&entities.Message{}).
			Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(seq), -1)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		entity := toEntityMessage(msg, conversationID, maxSeq+1)
		if err := tx.Create(entity).Error; err != nil {
			return err
		}

		if err := tx.Model(&conv).
			Updates(map[string]interface{}{
				"last_message_at": entity.SentAt,
				"updated_at":      time.Now(),
			}).Error; err != nil {
			return err
		}

		msg.ID = entity.ID
		msg.Seq = int(entity.Seq)
		msg.ConversationID = conversationID
		return nil
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to append message", err, "b9e4c7a2-6d3f-4a1b-9c5e-8f2d5b8e3a6c")
	}
	return nil
}

// MarkReadUpTo flips is_read on the reader's unread incoming messages up to
// and including upToSeq. A single bounded UPDATE gives the clamping and
// idempotency for free: rows past the end of the sequence simply do not
// match, and already-read rows are excluded by the predicate.
func (r *Repository) MarkReadUpTo(ctx context.Context, conversationID uint, reader string, upToSeq int) error {
	err := r.db.WithContext(ctx).Model(&entities.Message{}).
		Where("conversation_id = ? AND seq <= ? AND sender <> ? AND is_read = ?",
			conversationID, upToSeq, reader, false).
		Update("is_read", true).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to mark messages read", err, "c6a1f4b9-2e7d-4c3a-8b6f-1d9e4a7c2f5b")
	}
	return nil
}

func (r *Repository) Messages(ctx context.Context, conversationID uint) ([]*chat.Message, error) {
	var rows []entities.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to list messages", err, "a3d8b1e6-5f2c-4d7a-9b4e-6c1f8d3a5b9e")
	}

	messages := make([]*chat.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, toDomainMessage(&rows[i]))
	}
	return messages, nil
}

func (r *Repository) CountConversations(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Conversation{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Message{}).Count(&count).Error
	return count, err
}

// ===============================================
// Mappers
// ===============================================

func toEntityConversation(c *chat.Conversation, pairKey string) *entities.Conversation {
	return &entities.Conversation{
		PublicID:      c.PublicID,
		PairKey:       pairKey,
		ParticipantA:  c.ParticipantA,
		ParticipantB:  c.ParticipantB,
		LastMessageAt: c.LastMessageAt,
		Metadata:      datatypes.NewJSONType(c.Metadata),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toDomainConversation(e *entities.Conversation) *chat.Conversation {
	return &chat.Conversation{
		ID:            e.ID,
		PublicID:      e.PublicID,
		Object:        "conversation",
		ParticipantA:  e.ParticipantA,
		ParticipantB:  e.ParticipantB,
		LastMessageAt: e.LastMessageAt,
		Metadata:      e.Metadata.Data(),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toEntityMessage(m *chat.Message, conversationID uint, seq int64) *entities.Message {
	return &entities.Message{
		PublicID:       m.PublicID,
		ConversationID: conversationID,
		Seq:            seq,
		Sender:         m.Sender,
		ContentBlobRef: m.ContentBlobRef,
		ContentDigest:  m.ContentDigest,
		MediaBlobRef:   m.MediaBlobRef,
		MediaDigest:    m.MediaDigest,
		SentAt:         m.SentAt,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

func toDomainMessage(e *entities.Message) *chat.Message {
	return &chat.Message{
		ID:             e.ID,
		PublicID:       e.PublicID,
		Object:         "conversation.message",
		ConversationID: e.ConversationID,
		Seq:            int(e.Seq),
		Sender:         e.Sender,
		ContentBlobRef: e.ContentBlobRef,
		ContentDigest:  e.ContentDigest,
		MediaBlobRef:   e.MediaBlobRef,
		MediaDigest:    e.MediaDigest,
		SentAt:         e.SentAt,
		IsRead:         e.IsRead,
		CreatedAt:      e.CreatedAt,
	}
}
