package chat

import (
	"context"

	"veilchat-server/chat-api/internal/utils/idgen"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// IndexService maintains the mapping from an unordered participant pair to
// its single conversation. For any two distinct identities at most one
// conversation exists.
type IndexService struct {
	repo Repository
}

// NewIndexService creates a new conversation index service
func NewIndexService(repo Repository) *IndexService {
	return &IndexService{repo: repo}
}

// FindOrCreate returns the conversation between selfID and otherID, creating
// it when the pair has never talked. The call is idempotent: re-requesting an
// existing pair returns the existing conversation with created=false and no
// side effect, which callers rely on for safe retries. Concurrent first
// contacts for the same pair are resolved by the substrate with at most one
// winner; the loser observes the winner's conversation.
func (s *IndexService) FindOrCreate(ctx context.Context, selfID, otherID string) (*Conversation, bool, error) {
	if err := ValidateIdentity(selfID); err != nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid participant identity", err, "3f1c9a2e-7b4d-4e8a-9c1f-2a6b5d8e0f3a")
	}
	if err := ValidateIdentity(otherID); err != nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid participant identity", err, "8d2e6f1a-0c3b-4d7e-8f9a-1b4c7d0e3f6a")
	}
	if selfID == otherID {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInvalidParticipant, "cannot start a conversation with yourself", nil, "5a8b1c4d-2e7f-4a0b-9c3d-6e9f2a5b8c1d")
	}

	publicID, err := idgen.GenerateSecureID("conv", 16)
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to generate conversation ID")
	}

	conv, created, err := s.repo.CreateIfAbsent(ctx, NewConversation(publicID, selfID, otherID, nil))
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to find or create conversation")
	}
	return conv, created, nil
}

// Lookup is a pure query for the conversation between two identities in
// either argument order. Returns nil without error when the pair has no
// conversation.
func (s *IndexService) Lookup(ctx context.Context, a, b string) (*Conversation, error) {
	conv, err := s.repo.FindByPair(ctx, a, b)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up conversation")
	}
	return conv, nil
}

// ListByParticipant returns every conversation the identity is a member of.
func (s *IndexService) ListByParticipant(ctx context.Context, id string) ([]*Conversation, error) {
	convs, err := s.repo.FindByFilter(ctx, ConversationFilter{Participant: &id})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	return convs, nil
}

// GetByPublicID retrieves a conversation and verifies membership of callerID.
func (s *IndexService) GetByPublicID(ctx context.Context, publicID, callerID string) (*Conversation, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}
	// A non-member gets the same answer as a missing conversation so the
	// index never leaks which pairs have talked.
	if conv == nil || !conv.IsParticipant(callerID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "b7e2a9c4-1d6f-4b3a-8e0c-5f2d9a6b3c0e")
	}
	return conv, nil
}
