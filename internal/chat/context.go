package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/ledger"
)

const (
	historyHeader  = "[HISTORIAL RECIENTE]"
	ellipsisMarker = "…"

	labelUser      = "Usuario"
	labelAssistant = "Roma"
)

// Assembler builds the bounded transcript of recent turns included
// ahead of each completion request.
type Assembler struct {
	repo            *ledger.Repo
	log             *zap.Logger
	maxTurnPairs    int
	maxCharsPerTurn int
}

func NewAssembler(repo *ledger.Repo, maxTurnPairs, maxCharsPerTurn int, log *zap.Logger) *Assembler {
	if maxTurnPairs <= 0 {
		maxTurnPairs = 8
	}
	if maxCharsPerTurn <= 0 {
		maxCharsPerTurn = 600
	}
	return &Assembler{
		repo:            repo,
		log:             log,
		maxTurnPairs:    maxTurnPairs,
		maxCharsPerTurn: maxCharsPerTurn,
	}
}

// HistoryBlock returns the recent transcript, oldest first, or "" when
// there is no history. A fetch failure is logged and also yields "":
// history is best-effort and must never fail the turn.
func (a *Assembler) HistoryBlock(ctx context.Context, conversationID string) string {
	turns, err := a.repo.ListRecentTurnsDesc(ctx, conversationID, a.maxTurnPairs*2)
	if err != nil {
		a.log.Warn("history_fetch_failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return ""
	}
	if len(turns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(turns)+1)
	lines = append(lines, historyHeader)
	// The store returns newest-first; read back to front for a
	// chronological transcript.
	for i := len(turns) - 1; i >= 0; i-- {
		lines = append(lines, renderLine(turns[i].Role, turns[i].Content, a.maxCharsPerTurn))
	}
	return strings.Join(lines, "\n")
}

func renderLine(role, text string, maxChars int) string {
	label := labelUser
	if role == ledger.RoleAssistant {
		label = labelAssistant
	}
	runes := []rune(text)
	if maxChars > 0 && len(runes) > maxChars {
		text = string(runes[:maxChars]) + ellipsisMarker
	}
	return label + ": " + text
}
