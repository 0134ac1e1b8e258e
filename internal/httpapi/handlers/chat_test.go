package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/invicto-ai/roma-assistant/internal/assistant"
	"github.com/invicto-ai/roma-assistant/internal/chat"
	"github.com/invicto-ai/roma-assistant/internal/config"
	"github.com/invicto-ai/roma-assistant/internal/feedback"
	"github.com/invicto-ai/roma-assistant/internal/httpapi"
	"github.com/invicto-ai/roma-assistant/internal/httpapi/handlers"
	"github.com/invicto-ai/roma-assistant/internal/knowledge"
	"github.com/invicto-ai/roma-assistant/internal/ledger"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, req assistant.Request) (string, error) {
	_ = ctx
	_ = req
	return f.reply, f.err
}

type fakeQueue struct {
	published [][]byte
}

func (q *fakeQueue) PublishRequest(ctx context.Context, raw []byte) error {
	_ = ctx
	q.published = append(q.published, raw)
	return nil
}

func newTestRouter(t *testing.T, completer assistant.Completer, queue handlers.Enqueuer) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := ledger.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := ledger.NewRepo(db)
	log := zap.NewNop()
	router := knowledge.NewRouter(config.RouteTable{Global: "global"})
	assembler := chat.NewAssembler(repo, 8, 600, log)
	chatSvc := chat.NewService(repo, completer, router, assembler, log)
	feedbackSvc := feedback.NewService(repo, log)

	h := handlers.NewHandler(chatSvc, feedbackSvc, queue, nil, log)
	return httpapi.NewRouter(h), db
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf []byte
	switch b := body.(type) {
	case []byte:
		buf = b
	default:
		var err error
		buf, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat_Success(t *testing.T) {
	queue := &fakeQueue{}
	r, db := newTestRouter(t, &fakeCompleter{reply: "Respuesta"}, queue)

	w := postJSON(t, r, "/chat", map[string]any{
		"message": "hola",
		"userId":  "u1",
		"page":    "/simulacro-icfes/matematicas",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Reply          string `json:"reply"`
		ConversationID string `json:"conversationId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "Respuesta" || resp.ConversationID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected nothing enqueued on success, got %d", len(queue.published))
	}

	var turns int64
	if err := db.Model(&ledger.Turn{}).Count(&turns).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if turns != 2 {
		t.Fatalf("expected 2 turns, got %d", turns)
	}
}

func TestChat_MissingContentIsBadRequest(t *testing.T) {
	queue := &fakeQueue{}
	r, db := newTestRouter(t, &fakeCompleter{reply: "x"}, queue)

	w := postJSON(t, r, "/chat", map[string]any{"userId": "u1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(queue.published) != 0 {
		t.Fatal("validation failures must not be enqueued")
	}

	var n int64
	if err := db.Model(&ledger.Conversation{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no side effects, got %d conversations", n)
	}
}

func TestChat_RetryableFailureEnqueuesOriginalPayload(t *testing.T) {
	queue := &fakeQueue{}
	r, _ := newTestRouter(t, &fakeCompleter{err: errors.New("completion timeout")}, queue)

	raw := []byte(`{"message":"hola","userId":"u1","page":"/"}`)
	w := postJSON(t, r, "/chat", raw)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("internal error")) {
		t.Fatalf("expected generic error body, got %s", w.Body.String())
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected one enqueued payload, got %d", len(queue.published))
	}
	// The queue receives the original raw request, byte for byte.
	if !bytes.Equal(queue.published[0], raw) {
		t.Fatalf("expected untouched payload, got %s", queue.published[0])
	}
}

func TestFeedback_Validation(t *testing.T) {
	r, db := newTestRouter(t, &fakeCompleter{reply: "x"}, &fakeQueue{})

	w := postJSON(t, r, "/feedback", map[string]any{
		"conversationId": "conv-1",
		"rating":         "sideways",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var n int64
	if err := db.Model(&ledger.Feedback{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows, got %d", n)
	}
}

func TestFeedback_Saved(t *testing.T) {
	r, db := newTestRouter(t, &fakeCompleter{reply: "x"}, &fakeQueue{})

	w := postJSON(t, r, "/feedback", map[string]any{
		"conversationId": "conv-1",
		"rating":         "up",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var row ledger.Feedback
	if err := db.Where("conversation_id = ?", "conv-1").First(&row).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.Rating != "up" {
		t.Fatalf("unexpected row: %+v", row)
	}
}
