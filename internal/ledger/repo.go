package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	titleMaxLen  = 40
	emptyTitle   = "[Sin texto]"
	anonymousUID = "anonymous"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Conversation{}, &Turn{}, &Feedback{})
}

// CreateConversation writes a new header and returns its generated id.
// A blank email is stored as NULL, never as an empty string, so any
// uniqueness index on the column stays sparse.
func (r *Repo) CreateConversation(ctx context.Context, userID, name, email, firstMessage, page string) (*Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		userID = anonymousUID
	}

	var emailPtr *string
	if e := strings.TrimSpace(email); e != "" {
		emailPtr = &e
	}

	conv := &Conversation{
		ConversationID: uuid.NewString(),
		UserID:         userID,
		Name:           name,
		Email:          emailPtr,
		Title:          deriveTitle(firstMessage),
		Page:           page,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

// AppendTurn writes one immutable turn. The caller supplies the
// timestamp; append-time generation with a monotonic bump lives in the
// orchestrator so ordering survives the multi-step pipeline.
func (r *Repo) AppendTurn(ctx context.Context, t *Turn) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// ListRecentTurnsDesc returns the most recent turns newest-first. The
// context assembler reverses them into chronological order.
func (r *Repo) ListRecentTurnsDesc(ctx context.Context, conversationID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 16
	}
	var turns []Turn
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		return nil, err
	}
	return turns, nil
}

func (r *Repo) InsertFeedback(ctx context.Context, f *Feedback) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func deriveTitle(firstMessage string) string {
	s := strings.TrimSpace(firstMessage)
	if s == "" {
		return emptyTitle
	}
	runes := []rune(s)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen])
	}
	return s
}
