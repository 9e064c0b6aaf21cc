package envelope

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/infrastructure/observability"
	"veilchat-server/chat-api/internal/utils/platformerrors"
)

// BlobTransport moves opaque ciphertext to and from the external blob store.
// Put returns a stable, content-derived identifier. Failures are surfaced to
// the caller, never retried here.
type BlobTransport interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, blobRef string) ([]byte, error)
}

// Encrypter is the threshold-encryption backend boundary. Both operations are
// opaque: identity scopes the ciphertext to a conversation, sessionAuth is a
// time-bounded credential obtained by the caller elsewhere.
type Encrypter interface {
	Encrypt(ctx context.Context, identity string, threshold int, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, identity string, ciphertext []byte, sessionAuth string) ([]byte, error)
}

// Pipeline composes the conversation identity, content digest, encryption
// backend and blob transport into the encrypt-store-verify-decrypt protocol.
// Pipelines are stateless; operations on different messages may run
// concurrently.
type Pipeline struct {
	blobs   BlobTransport
	backend Encrypter
	log     zerolog.Logger
}

// NewPipeline creates a new encryption pipeline
func NewPipeline(blobs BlobTransport, backend Encrypter, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		blobs:   blobs,
		backend: backend,
		log:     log.With().Str("component", "envelope-pipeline").Logger(),
	}
}

// SealedRef is the pair a successful EncryptAndStore hands back to the
// ledger: the blob reference and the plaintext digest.
type SealedRef struct {
	BlobRef string `json:"blob_ref"`
	Digest  string `json:"digest"`
}

// EncryptAndStore digests the plaintext, encrypts it under the
// conversation-scoped identity and uploads the ciphertext. The operation
// either completes or fails as a whole from the caller's perspective: a
// successful return always references an uploaded blob. Neither backend call
// is retried; retry policy belongs to the caller. An abandoned call can leave
// an orphaned blob behind, which the blob store's own garbage collection
// bounds.
func (p *Pipeline) EncryptAndStore(ctx context.Context, plaintext []byte, conversationID string, participants []string, threshold int) (*SealedRef, error) {
	ctx, span := observability.StartSpan(ctx, "envelope", "envelope.seal")
	defer span.End()
	observability.AddSpanAttributes(ctx, attribute.String("conversation.id", conversationID))

	digest := chat.Digest(plaintext)
	identity := chat.DeriveIdentity(conversationID, participants)

	ciphertext, err := p.backend.Encrypt(ctx, identity, threshold, plaintext)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeEncryptionBackend, "encryption backend rejected the payload", err, "a1d4f7b0-3c6e-4a9d-2f5b-8e1c4a7d0f3b")
	}

	blobRef, err := p.blobs.Put(ctx, ciphertext)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to upload encrypted blob")
	}

	p.log.Debug().
		Str("conversation_id", conversationID).
		Str("blob_ref", blobRef).
		Int("ciphertext_bytes", len(ciphertext)).
		Msg("sealed message stored")

	return &SealedRef{BlobRef: blobRef, Digest: digest}, nil
}

// FetchAndDecrypt downloads the ciphertext, decrypts it with the re-derived
// conversation identity and verifies the plaintext against expectedDigest.
// Verification is fail-closed: on a mismatch no plaintext is returned,
// logged or cached.
func (p *Pipeline) FetchAndDecrypt(ctx context.Context, blobRef, conversationID string, participants []string, sessionAuth, expectedDigest string) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, "envelope", "envelope.open")
	defer span.End()
	observability.AddSpanAttributes(ctx,
		attribute.String("conversation.id", conversationID),
		attribute.String("blob.ref", blobRef),
	)

	ciphertext, err := p.blobs.Get(ctx, blobRef)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to download encrypted blob")
	}

	// The identity must match the one derived at encryption time bit for bit
	// or the backend refuses to authorize decryption.
	identity := chat.DeriveIdentity(conversationID, participants)

	plaintext, err := p.backend.Decrypt(ctx, identity, ciphertext, sessionAuth)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeEncryptionBackend, "decryption backend rejected the ciphertext", err, "6b9e2c5f-8a1d-4b4e-7c0a-3d6f9b2e5c8a")
	}

	if !chat.VerifyDigest(plaintext, expectedDigest) {
		p.log.Warn().
			Str("conversation_id", conversationID).
			Str("blob_ref", blobRef).
			Msg("content digest mismatch, withholding plaintext")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeIntegrityMismatch, "decrypted content failed integrity verification", nil, "2e5a8d1c-4f7b-4e0a-9c3d-6b9f2a5d8e1c")
	}

	return plaintext, nil
}

// StoreMedia encrypts and uploads a media attachment under the same
// conversation identity. Media produces its own blob reference and carries no
// integrity digest; only textual content does.
func (p *Pipeline) StoreMedia(ctx context.Context, media []byte, conversationID string, participants []string, threshold int) (string, error) {
	identity := chat.DeriveIdentity(conversationID, participants)

	ciphertext, err := p.backend.Encrypt(ctx, identity, threshold, media)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeEncryptionBackend, "encryption backend rejected the media payload", err, "f3c6a9d2-5e8b-4f1c-0a4d-7b0e3c6f9a2d")
	}

	blobRef, err := p.blobs.Put(ctx, ciphertext)
	if err != nil {
		return "", platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to upload encrypted media blob")
	}
	return blobRef, nil
}

// FetchMedia downloads and decrypts a media attachment. No digest is checked.
func (p *Pipeline) FetchMedia(ctx context.Context, blobRef, conversationID string, participants []string, sessionAuth string) ([]byte, error) {
	ciphertext, err := p.blobs.Get(ctx, blobRef)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to download encrypted media blob")
	}

	identity := chat.DeriveIdentity(conversationID, participants)

	media, err := p.backend.Decrypt(ctx, identity, ciphertext, sessionAuth)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeEncryptionBackend, "decryption backend rejected the media ciphertext", err, "8a1d4f7c-0b3e-4a6d-9f2c-5e8b1d4a7f0c")
	}
	return media, nil
}
