// Package feedback records user ratings on past conversations. It is a
// separate, simpler write path into the ledger.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/fault"
	"github.com/invicto-ai/roma-assistant/internal/ledger"
)

// OtherTag is the reason code under which free text is accepted. Any
// other tag silently drops the free text.
const OtherTag = "btnOther"

const (
	RatingUp   = "up"
	RatingDown = "down"
)

const StageRecord = "feedback"

type Request struct {
	ConversationID string `json:"conversationId"`
	Rating         string `json:"rating"`
	Tag            string `json:"tag,omitempty"`
	CustomText     string `json:"customText,omitempty"`
	UserID         string `json:"userId,omitempty"`
	Page           string `json:"page,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
}

type Service struct {
	repo *ledger.Repo
	log  *zap.Logger
}

func NewService(repo *ledger.Repo, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Record validates and writes one immutable feedback row. Validation
// failures are permanent; store failures are retryable.
func (s *Service) Record(ctx context.Context, req Request) (*ledger.Feedback, error) {
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		return nil, fault.Newf(fault.Validation, StageRecord, "conversationId is required")
	}
	if req.Rating != RatingUp && req.Rating != RatingDown {
		return nil, fault.Newf(fault.Validation, StageRecord, `rating must be "up" or "down"`)
	}

	tag := strings.TrimSpace(req.Tag)

	// Free text is only meaningful under the "other" tag; an empty
	// string is kept there (the user opened the box), anything else is
	// dropped even if supplied.
	var customText *string
	if tag == OtherTag {
		t := strings.TrimSpace(req.CustomText)
		customText = &t
	}

	row := &ledger.Feedback{
		ConversationID: conversationID,
		Rating:         req.Rating,
		Tag:            optional(tag),
		CustomText:     customText,
		UserID:         optional(req.UserID),
		Page:           optional(req.Page),
		MessageID:      optional(req.MessageID),
		Timestamp:      time.Now().UTC(),
	}

	if err := s.repo.InsertFeedback(ctx, row); err != nil {
		return nil, fault.New(fault.DependencyUnavailable, StageRecord,
			fmt.Errorf("insert feedback: %w", err))
	}

	s.log.Info("feedback_saved",
		zap.String("conversation_id", conversationID),
		zap.String("rating", req.Rating),
		zap.String("tag", tag),
		zap.Bool("has_custom_text", customText != nil),
	)
	return row, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
