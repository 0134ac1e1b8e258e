package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/assistant"
	"github.com/invicto-ai/roma-assistant/internal/fault"
	"github.com/invicto-ai/roma-assistant/internal/knowledge"
	"github.com/invicto-ai/roma-assistant/internal/ledger"
)

// Pipeline stages, used as the Stage field of classified errors.
const (
	StageValidate     = "validate"
	StageConversation = "conversation"
	StageCompletion   = "completion"
	StageResponse     = "response"
	StagePersist      = "persist"
)

// Service orchestrates one turn: resolve the conversation, assemble
// context, call the completion service, validate the reply, persist the
// exchange. Each invocation is independent; the only shared mutable
// resource is the ledger store.
type Service struct {
	repo      *ledger.Repo
	completer assistant.Completer
	router    *knowledge.Router
	assembler *Assembler
	log       *zap.Logger
}

func NewService(repo *ledger.Repo, completer assistant.Completer, router *knowledge.Router, assembler *Assembler, log *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		completer: completer,
		router:    router,
		assembler: assembler,
		log:       log,
	}
}

// ProcessTurn runs the full pipeline for one user turn. Errors carry a
// classification; only retryable ones should be queued for redelivery
// by the caller.
//
// Ordering discipline: the conversation header must be durable before
// the completion call (a reply with no home to persist it in is worse
// than a wasted retry), and the completion call happens before any turn
// append so a completion failure leaves no partial exchange behind.
func (s *Service) ProcessTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	req.normalize()

	// The entry point validates content presence; re-assert it here so
	// a bad payload arriving via the queue cannot cause side effects.
	if !req.HasContent() {
		return TurnResult{}, fault.Newf(fault.Validation, StageValidate, "missing message or imageUrls")
	}

	stores := s.router.StoresForPage(req.Page)

	// Step 1: conversation resolution. A caller-supplied id is trusted
	// without an existence check; redelivery depends on that to avoid
	// minting a second header for the same exchange.
	conversationID := req.ConversationID
	if conversationID != "" {
		s.log.Info("conversation_reused",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", req.UserID),
			zap.String("page", req.Page),
			zap.Strings("knowledge_stores", stores),
		)
	} else {
		conv, err := s.repo.CreateConversation(ctx, req.UserID, req.Name, req.Email, req.Message, req.Page)
		if err != nil {
			return TurnResult{}, fault.New(fault.DependencyUnavailable, StageConversation,
				fmt.Errorf("create conversation: %w", err))
		}
		conversationID = conv.ConversationID
		s.log.Info("conversation_created",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", req.UserID),
			zap.String("page", req.Page),
			zap.Strings("knowledge_stores", stores),
		)
	}

	// Step 2: context assembly; best-effort, never fails the turn.
	history := s.assembler.HistoryBlock(ctx, conversationID)

	// Step 3: fixed composition order: history, then the newest ask,
	// then images in input order.
	blocks := make([]assistant.Block, 0, len(req.ImageURLs)+2)
	if history != "" {
		blocks = append(blocks, assistant.TextBlock(history))
	}
	if strings.TrimSpace(req.Message) != "" {
		blocks = append(blocks, assistant.TextBlock(req.Message))
	}
	blocks = append(blocks, assistant.ImageBlocks(req.ImageURLs)...)

	// Step 4: completion request.
	reply, err := s.completer.Complete(ctx, assistant.Request{
		Blocks:          blocks,
		UserID:          req.UserID,
		Page:            req.Page,
		Name:            req.Name,
		Email:           req.Email,
		KnowledgeStores: stores,
	})
	if err != nil {
		return TurnResult{}, fault.New(fault.DependencyUnavailable, StageCompletion,
			fmt.Errorf("completion service: %w", err))
	}

	// Step 5: response validation. An empty or sentinel reply is a
	// failure, not a successful empty answer.
	if strings.TrimSpace(reply) == "" || strings.Contains(reply, "No assistant response") {
		return TurnResult{}, fault.Newf(fault.EmptyResult, StageResponse, "assistant returned an empty or invalid response")
	}

	// Step 6: persist the exchange: user text, image placeholders,
	// assistant reply, in that order.
	if err := s.persistExchange(ctx, conversationID, req, reply); err != nil {
		return TurnResult{}, err
	}

	s.log.Info("turn_completed",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", req.UserID),
		zap.String("reply_snippet", snippet(reply, 100)),
	)

	return TurnResult{Reply: reply, ConversationID: conversationID}, nil
}

// persistExchange appends the turns of one exchange. The store is not
// transactional across appends; a mid-sequence failure surfaces as
// PARTIAL_PERSISTENCE so a redelivery can complete the exchange.
func (s *Service) persistExchange(ctx context.Context, conversationID string, req TurnRequest, reply string) error {
	clock := newAppendClock()
	appended := 0

	append1 := func(role, content string) error {
		err := s.repo.AppendTurn(ctx, &ledger.Turn{
			ConversationID: conversationID,
			Role:           role,
			Content:        content,
			Timestamp:      clock.next(),
		})
		if err == nil {
			appended++
			return nil
		}
		class := fault.DependencyUnavailable
		if appended > 0 {
			class = fault.PartialPersistence
			s.log.Error("partial_persistence",
				zap.String("conversation_id", conversationID),
				zap.Int("turns_written", appended),
				zap.Error(err),
			)
		}
		return fault.New(class, StagePersist, fmt.Errorf("append %s turn: %w", role, err))
	}

	if strings.TrimSpace(req.Message) != "" {
		if err := append1(ledger.RoleUser, req.Message); err != nil {
			return err
		}
	}
	for _, img := range req.ImageURLs {
		if err := append1(ledger.RoleUser, "[Imagen] "+img); err != nil {
			return err
		}
	}
	return append1(ledger.RoleAssistant, reply)
}

// appendClock issues timestamps at append time, each strictly after the
// previous one, so the turns of one exchange can never invert under
// clock adjustments mid-pipeline.
type appendClock struct {
	last time.Time
}

func newAppendClock() *appendClock {
	return &appendClock{}
}

func (c *appendClock) next() time.Time {
	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
