package chat

import (
	"context"
	"time"

	"veilchat-server/chat-api/internal/utils/idgen"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// LedgerService owns the append-only message sequence of a conversation and
// its read-state transition. Messages carry only opaque blob references and
// digests; the ledger never sees plaintext.
type LedgerService struct {
	repo Repository
}

// NewLedgerService creates a new conversation ledger service
func NewLedgerService(repo Repository) *LedgerService {
	return &LedgerService{repo: repo}
}

// AppendInput carries the opaque references for one message. MediaBlobRef is
// optional; no digest accompanies media.
type AppendInput struct {
	Sender         string
	ContentBlobRef string
	ContentDigest  string
	MediaBlobRef   *string
	SentAt         time.Time
}

// Append adds a message at the end of the conversation's sequence and
// advances the last-message timestamp. The message's sequence number is
// assigned by the substrate at commit time, so concurrent appends land in
// whatever order the substrate serializes them.
func (s *LedgerService) Append(ctx context.Context, conv *Conversation, input AppendInput) (*Message, error) {
	if !conv.IsParticipant(input.Sender) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotParticipant, "sender is not a member of this conversation", nil, "e4a7b2c9-6d1f-4e8a-0b3c-9f6d2a5e8b1c")
	}
	if input.ContentBlobRef == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeEmptyReference, "content blob reference is required", nil, "1b6e9a2d-4c7f-4a0e-8d3b-5c2f9e6a1d4b")
	}
	if input.ContentDigest == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeEmptyReference, "content digest is required", nil, "7c2d5f8a-9b0e-4c3a-1e6d-8a5b2c9f0e3d")
	}
	if input.MediaBlobRef != nil && *input.MediaBlobRef == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeEmptyReference, "media blob reference must not be blank", nil, "0d3f6a9c-2e5b-4d8f-7a1c-4b0e9d6f3a2c")
	}

	publicID, err := idgen.GenerateSecureID("msg", 16)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate message ID")
	}

	msg := &Message{
		PublicID:       publicID,
		Object:         "conversation.message",
		ConversationID: conv.ID,
		Sender:         input.Sender,
		ContentBlobRef: input.ContentBlobRef,
		ContentDigest:  input.ContentDigest,
		MediaBlobRef:   input.MediaBlobRef,
		SentAt:         input.SentAt,
	}

	if err := s.repo.AppendMessage(ctx, conv.ID, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to append message")
	}

	conv.LastMessageAt = &msg.SentAt
	return msg, nil
}

// MarkReadUpTo marks every message at sequence 0..upToSeq as read, skipping
// messages the reader authored. A sequence number beyond the end of the
// ledger clamps to the last message instead of erroring, and repeating the
// call with the same or a smaller bound changes nothing.
func (s *LedgerService) MarkReadUpTo(ctx context.Context, conv *Conversation, reader string, upToSeq int) error {
	if !conv.IsParticipant(reader) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotParticipant, "reader is not a member of this conversation", nil, "9f2a5c8e-1b4d-4f7a-3c0e-6d9b2f5a8c1e")
	}
	if upToSeq < 0 {
		return nil
	}
	if err := s.repo.MarkReadUpTo(ctx, conv.ID, reader, upToSeq); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to advance read state")
	}
	return nil
}

// Messages returns the conversation's message sequence in append order.
func (s *LedgerService) Messages(ctx context.Context, conv *Conversation) ([]*Message, error) {
	msgs, err := s.repo.Messages(ctx, conv.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load messages")
	}
	return msgs, nil
}
