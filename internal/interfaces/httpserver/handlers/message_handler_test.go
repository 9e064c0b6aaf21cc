package handlers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/domain/envelope"
	"veilchat-server/chat-api/internal/interfaces/httpserver/handlers"
	"veilchat-server/chat-api/internal/interfaces/httpserver/requests"
)

// fakeTransport is an in-memory blob store for handler tests.
type fakeTransport struct {
	blobs   map[string][]byte
	counter int
}

func (f *fakeTransport) Put(ctx context.Context, data []byte) (string, error) {
	f.counter++
	ref := fmt.Sprintf("blob-%d", f.counter)
	f.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (f *fakeTransport) Get(ctx context.Context, blobRef string) ([]byte, error) {
	return append([]byte(nil), f.blobs[blobRef]...), nil
}

// fakeBackend reverses bytes, enough to make ciphertext differ from
// plaintext while staying invertible.
type fakeBackend struct{}

func (fakeBackend) transform(in []byte) []byte {
	out := make([]byte, len(in))
	for i, c := range in {
		out[len(in)-1-i] = c
	}
	return out
}

func (b fakeBackend) Encrypt(ctx context.Context, identity string, threshold int, plaintext []byte) ([]byte, error) {
	return b.transform(plaintext), nil
}

func (b fakeBackend) Decrypt(ctx context.Context, identity string, ciphertext []byte, sessionAuth string) ([]byte, error) {
	return b.transform(ciphertext), nil
}

func setupMessageRouter(repo chat.Repository, transport *fakeTransport, caller string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	requests.RegisterValidations()

	cfg := &config.Config{DefaultThreshold: 2}
	index := chat.NewIndexService(repo)
	pipeline := envelope.NewPipeline(transport, fakeBackend{}, zerolog.Nop())
	handler := handlers.NewMessageHandler(cfg, index, pipeline, zerolog.Nop())

	r := gin.New()
	r.Use(identityMiddleware(caller))
	r.POST("/v1/messages/seal", handler.Seal)
	r.POST("/v1/messages/open", handler.Open)
	return r
}

func TestSealAndOpen_RoundTrip(t *testing.T) {
	repo := newMemoryRepository()
	transport := &fakeTransport{blobs: make(map[string][]byte)}

	conv, _, err := repo.CreateIfAbsent(context.Background(), chat.NewConversation("conv_seal", "0xaaa111", "0xbbb222", nil))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := setupMessageRouter(repo, transport, "0xaaa111")
	plaintext := []byte("see you at noon")

	w := doJSON(t, r, http.MethodPost, "/v1/messages/seal", gin.H{
		"conversation_id": conv.PublicID,
		"plaintext_b64":   base64.StdEncoding.EncodeToString(plaintext),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("seal status = %d, body = %s", w.Code, w.Body.String())
	}
	var sealed struct {
		BlobRef string `json:"blob_ref"`
		Digest  string `json:"digest"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &sealed)
	if sealed.BlobRef == "" || sealed.Digest != chat.Digest(plaintext) {
		t.Fatalf("unexpected seal response: %+v", sealed)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/messages/open", gin.H{
		"conversation_id": conv.PublicID,
		"blob_ref":        sealed.BlobRef,
		"expected_digest": sealed.Digest,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}
	var opened struct {
		PlaintextB64 string `json:"plaintext_b64"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &opened)
	got, _ := base64.StdEncoding.DecodeString(opened.PlaintextB64)
	if string(got) != string(plaintext) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestOpen_TamperedBlob(t *testing.T) {
	repo := newMemoryRepository()
	transport := &fakeTransport{blobs: make(map[string][]byte)}

	conv, _, err := repo.CreateIfAbsent(context.Background(), chat.NewConversation("conv_tamper", "0xaaa111", "0xbbb222", nil))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := setupMessageRouter(repo, transport, "0xaaa111")
	plaintext := []byte("original")

	w := doJSON(t, r, http.MethodPost, "/v1/messages/seal", gin.H{
		"conversation_id": conv.PublicID,
		"plaintext_b64":   base64.StdEncoding.EncodeToString(plaintext),
	})
	var sealed struct {
		BlobRef string `json:"blob_ref"`
		Digest  string `json:"digest"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &sealed)

	transport.blobs[sealed.BlobRef][0] ^= 0x01

	w = doJSON(t, r, http.MethodPost, "/v1/messages/open", gin.H{
		"conversation_id": conv.PublicID,
		"blob_ref":        sealed.BlobRef,
		"expected_digest": sealed.Digest,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Type != "INTEGRITY_MISMATCH" {
		t.Fatalf("type = %s", resp.Type)
	}
	if resp.Message != "could not retrieve message" {
		t.Fatalf("message should stay coarse, got %q", resp.Message)
	}
}

func TestSeal_OutsiderDenied(t *testing.T) {
	repo := newMemoryRepository()
	transport := &fakeTransport{blobs: make(map[string][]byte)}

	conv, _, err := repo.CreateIfAbsent(context.Background(), chat.NewConversation("conv_out", "0xaaa111", "0xbbb222", nil))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := setupMessageRouter(repo, transport, "0xccc333")

	w := doJSON(t, r, http.MethodPost, "/v1/messages/seal", gin.H{
		"conversation_id": conv.PublicID,
		"plaintext_b64":   base64.StdEncoding.EncodeToString([]byte("secret")),
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if len(transport.blobs) != 0 {
		t.Fatal("outsider must not get anything stored")
	}
}

func TestSeal_InvalidBase64(t *testing.T) {
	repo := newMemoryRepository()
	transport := &fakeTransport{blobs: make(map[string][]byte)}

	if _, _, err := repo.CreateIfAbsent(context.Background(), chat.NewConversation("conv_b64", "0xaaa111", "0xbbb222", nil)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := setupMessageRouter(repo, transport, "0xaaa111")

	w := doJSON(t, r, http.MethodPost, "/v1/messages/seal", gin.H{
		"conversation_id": "conv_b64",
		"plaintext_b64":   "%%not-base64%%",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
