package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/invicto-ai/roma-assistant/internal/ledger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := ledger.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTurns(t *testing.T, repo *ledger.Repo, conversationID string, n int) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := ledger.RoleUser
		if i%2 == 1 {
			role = ledger.RoleAssistant
		}
		if err := repo.AppendTurn(context.Background(), &ledger.Turn{
			ConversationID: conversationID,
			Role:           role,
			Content:        fmt.Sprintf("turno %d", i),
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("seed turn %d: %v", i, err)
		}
	}
}

func TestHistoryBlock_EmptyConversation(t *testing.T) {
	repo := ledger.NewRepo(openTestDB(t))
	a := NewAssembler(repo, 8, 600, zap.NewNop())

	if got := a.HistoryBlock(context.Background(), "missing"); got != "" {
		t.Fatalf("expected empty history, got %q", got)
	}
}

func TestHistoryBlock_AscendingOrderAndLineCount(t *testing.T) {
	repo := ledger.NewRepo(openTestDB(t))
	a := NewAssembler(repo, 8, 600, zap.NewNop())

	seedTurns(t, repo, "conv-1", 5)

	block := a.HistoryBlock(context.Background(), "conv-1")
	lines := strings.Split(block, "\n")
	if lines[0] != "[HISTORIAL RECIENTE]" {
		t.Fatalf("expected header, got %q", lines[0])
	}
	if len(lines)-1 != 5 {
		t.Fatalf("expected 5 transcript lines, got %d", len(lines)-1)
	}
	if !strings.HasSuffix(lines[1], "turno 0") || !strings.HasSuffix(lines[5], "turno 4") {
		t.Fatalf("expected chronological order, got first=%q last=%q", lines[1], lines[5])
	}
	if !strings.HasPrefix(lines[1], "Usuario: ") {
		t.Fatalf("expected user label, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Roma: ") {
		t.Fatalf("expected assistant label, got %q", lines[2])
	}
}

func TestHistoryBlock_CapsAtWindow(t *testing.T) {
	repo := ledger.NewRepo(openTestDB(t))
	a := NewAssembler(repo, 8, 600, zap.NewNop())

	seedTurns(t, repo, "conv-1", 20)

	block := a.HistoryBlock(context.Background(), "conv-1")
	lines := strings.Split(block, "\n")
	if len(lines)-1 != 16 {
		t.Fatalf("expected 16 transcript lines, got %d", len(lines)-1)
	}
	// The 16 most recent of 20 are turns 4..19.
	if !strings.HasSuffix(lines[1], "turno 4") {
		t.Fatalf("expected oldest included line to be turno 4, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[16], "turno 19") {
		t.Fatalf("expected newest line to be turno 19, got %q", lines[16])
	}
}

func TestHistoryBlock_TruncatesLongTurns(t *testing.T) {
	repo := ledger.NewRepo(openTestDB(t))
	limit := 600
	a := NewAssembler(repo, 8, limit, zap.NewNop())

	long := strings.Repeat("á", limit+100)
	if err := repo.AppendTurn(context.Background(), &ledger.Turn{
		ConversationID: "conv-1",
		Role:           ledger.RoleUser,
		Content:        long,
		Timestamp:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	block := a.HistoryBlock(context.Background(), "conv-1")
	lines := strings.Split(block, "\n")
	line := lines[1]
	if !strings.HasSuffix(line, "…") {
		t.Fatalf("expected ellipsis marker at end of %q", line[len(line)-20:])
	}
	body := strings.TrimPrefix(line, "Usuario: ")
	if got := len([]rune(body)); got > limit+1 {
		t.Fatalf("expected at most %d runes including marker, got %d", limit+1, got)
	}
}

func TestHistoryBlock_FetchFailureReturnsNoContext(t *testing.T) {
	db := openTestDB(t)
	repo := ledger.NewRepo(db)
	a := NewAssembler(repo, 8, 600, zap.NewNop())

	// Make the fetch fail outright; the assembler must degrade to "no
	// context", not propagate the error.
	if err := db.Migrator().DropTable(&ledger.Turn{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if got := a.HistoryBlock(context.Background(), "conv-1"); got != "" {
		t.Fatalf("expected empty history on fetch failure, got %q", got)
	}
}
