package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/domain/chat"
	"veilchat-server/chat-api/internal/infrastructure/auth"
	"veilchat-server/chat-api/internal/interfaces/httpserver/handlers"
	"veilchat-server/chat-api/internal/interfaces/httpserver/requests"
)

// memoryRepository backs handler tests with the same canonical pair-key
// semantics as the real substrate.
type memoryRepository struct {
	byPairKey map[string]*chat.Conversation
	messages  map[uint][]*chat.Message
	nextID    uint
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		byPairKey: make(map[string]*chat.Conversation),
		messages:  make(map[uint][]*chat.Message),
	}
}

func (m *memoryRepository) CreateIfAbsent(ctx context.Context, conv *chat.Conversation) (*chat.Conversation, bool, error) {
	key := chat.PairKey(conv.ParticipantA, conv.ParticipantB)
	if existing, ok := m.byPairKey[key]; ok {
		return existing, false, nil
	}
	m.nextID++
	conv.ID = m.nextID
	m.byPairKey[key] = conv
	return conv, true, nil
}

func (m *memoryRepository) FindByPair(ctx context.Context, a, b string) (*chat.Conversation, error) {
	return m.byPairKey[chat.PairKey(a, b)], nil
}

func (m *memoryRepository) FindByFilter(ctx context.Context, filter chat.ConversationFilter) ([]*chat.Conversation, error) {
	var out []*chat.Conversation
	for _, conv := range m.byPairKey {
		if filter.Participant != nil && !conv.IsParticipant(*filter.Participant) {
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

func (m *memoryRepository) FindByPublicID(ctx context.Context, publicID string) (*chat.Conversation, error) {
	for _, conv := range m.byPairKey {
		if conv.PublicID == publicID {
			return conv, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) AppendMessage(ctx context.Context, conversationID uint, msg *chat.Message) error {
	msgs := m.messages[conversationID]
	// Sequence numbers are zero-based insertion indices.
	msg.Seq = len(msgs)
	msg.ConversationID = conversationID
	m.messages[conversationID] = append(msgs, msg)
	return nil
}

func (m *memoryRepository) MarkReadUpTo(ctx context.Context, conversationID uint, reader string, upToSeq int) error {
	for _, msg := range m.messages[conversationID] {
		if msg.Seq <= upToSeq && msg.Sender != reader {
			msg.IsRead = true
		}
	}
	return nil
}

func (m *memoryRepository) Messages(ctx context.Context, conversationID uint) ([]*chat.Message, error) {
	msgs := append([]*chat.Message(nil), m.messages[conversationID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Seq < msgs[j].Seq })
	return msgs, nil
}

func (m *memoryRepository) CountConversations(ctx context.Context) (int64, error) {
	return int64(len(m.byPairKey)), nil
}

func (m *memoryRepository) CountMessages(ctx context.Context) (int64, error) {
	var total int64
	for _, msgs := range m.messages {
		total += int64(len(msgs))
	}
	return total, nil
}

// identityMiddleware injects a caller identity the way the auth validator
// would have.
func identityMiddleware(identity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity != "" {
			c.Set(auth.CallerIdentityKey, identity)
		}
		c.Next()
	}
}

func setupConversationRouter(repo chat.Repository, caller string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	requests.RegisterValidations()

	cfg := &config.Config{DefaultThreshold: 2}
	index := chat.NewIndexService(repo)
	ledger := chat.NewLedgerService(repo)
	handler := handlers.NewConversationHandler(cfg, index, ledger, zerolog.Nop())

	r := gin.New()
	r.Use(identityMiddleware(caller))
	r.POST("/v1/conversations", handler.Create)
	r.GET("/v1/conversations", handler.List)
	r.GET("/v1/conversations/:id", handler.Get)
	r.GET("/v1/conversations/:id/messages", handler.Messages)
	r.POST("/v1/conversations/:id/messages", handler.Append)
	r.POST("/v1/conversations/:id/read", handler.MarkRead)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateConversation_OK(t *testing.T) {
	repo := newMemoryRepository()
	r := setupConversationRouter(repo, "0xaaa111")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID           string   `json:"id"`
		Created      bool     `json:"created"`
		Participants []string `json:"participants"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Created {
		t.Fatal("expected created=true")
	}
	if len(resp.Participants) != 2 {
		t.Fatalf("participants = %v", resp.Participants)
	}

	// Same pair again: silent success, created=false, same id.
	w = doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	if w.Code != http.StatusOK {
		t.Fatalf("repeat status = %d", w.Code)
	}
	var second struct {
		ID      string `json:"id"`
		Created bool   `json:"created"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &second)
	if second.Created || second.ID != resp.ID {
		t.Fatalf("expected idempotent repeat, got created=%v id=%s", second.Created, second.ID)
	}
}

func TestCreateConversation_SelfPair(t *testing.T) {
	repo := newMemoryRepository()
	r := setupConversationRouter(repo, "0xaaa111")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xaaa111"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
	}
}

func TestCreateConversation_MalformedIdentity(t *testing.T) {
	repo := newMemoryRepository()
	r := setupConversationRouter(repo, "0xaaa111")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "not-hex"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateConversation_NoIdentity(t *testing.T) {
	repo := newMemoryRepository()
	r := setupConversationRouter(repo, "")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAppendAndListMessages(t *testing.T) {
	repo := newMemoryRepository()
	r := setupConversationRouter(repo, "0xaaa111")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	var conv struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	digest := chat.Digest([]byte("hello"))
	w = doJSON(t, r, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", gin.H{
		"content_blob_ref": "blob-1",
		"content_digest":   digest,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("append status = %d, body = %s", w.Code, w.Body.String())
	}
	var msg struct {
		Seq    int    `json:"seq"`
		Sender string `json:"sender"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &msg)
	if msg.Seq != 0 || msg.Sender != "0xaaa111" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Data []struct {
			Seq            int    `json:"seq"`
			ContentBlobRef string `json:"content_blob_ref"`
		} `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Data) != 1 || list.Data[0].ContentBlobRef != "blob-1" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestAppendMessage_MissingDigest(t *testing.T) {
	repo := newMemoryRepository()
	r := setupConversationRouter(repo, "0xaaa111")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	var conv struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	w = doJSON(t, r, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", gin.H{
		"content_blob_ref": "blob-1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestConversation_OutsiderSeesNotFound(t *testing.T) {
	repo := newMemoryRepository()

	member := setupConversationRouter(repo, "0xaaa111")
	w := doJSON(t, member, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	var conv struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	outsider := setupConversationRouter(repo, "0xccc333")
	w = doJSON(t, outsider, http.MethodGet, "/v1/conversations/"+conv.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestMarkRead_Flow(t *testing.T) {
	repo := newMemoryRepository()

	alice := setupConversationRouter(repo, "0xaaa111")
	bob := setupConversationRouter(repo, "0xbbb222")

	w := doJSON(t, alice, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	var conv struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	digest := chat.Digest([]byte("hi"))
	for i := 0; i < 2; i++ {
		w = doJSON(t, alice, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", gin.H{
			"content_blob_ref": "blob",
			"content_digest":   digest,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("append %d: %d", i, w.Code)
		}
	}

	// Bob marks far past the end; the bound clamps.
	w = doJSON(t, bob, http.MethodPost, "/v1/conversations/"+conv.ID+"/read", gin.H{"up_to_seq": 99})
	if w.Code != http.StatusOK {
		t.Fatalf("mark read status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, bob, http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", nil)
	var list struct {
		Data []struct {
			IsRead bool `json:"is_read"`
		} `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	for i, m := range list.Data {
		if !m.IsRead {
			t.Fatalf("message %d still unread", i)
		}
	}
}

func TestMarkRead_MissingBound(t *testing.T) {
	repo := newMemoryRepository()
	r := setupConversationRouter(repo, "0xaaa111")

	w := doJSON(t, r, http.MethodPost, "/v1/conversations", gin.H{"other_id": "0xbbb222"})
	var conv struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &conv)

	w = doJSON(t, r, http.MethodPost, "/v1/conversations/"+conv.ID+"/read", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
