package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/invicto-ai/roma-assistant/internal/config"
)

// NoResponseSentinel is returned in place of reply text when the model
// produced nothing usable. Callers treat it as a failed completion, not
// as a valid empty reply.
const NoResponseSentinel = "[No assistant response found]"

// Request is the composed content plus identity/page signals forwarded
// to the completion service. KnowledgeStores carries the routing
// decision for retrieval-side configuration and logging.
type Request struct {
	Blocks          []Block
	UserID          string
	Page            string
	Name            string
	Email           string
	KnowledgeStores []string
}

// Completer is the completion-service collaborator: opaque, possibly
// slow, possibly failing.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type OpenAIClient struct {
	client  *openai.Client
	model   string
	temp    float32
	topP    float32
	timeout time.Duration
}

func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("assistant: OPENAI_API_KEY is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		client:  openai.NewClient(cfg.APIKey),
		model:   cfg.Model,
		temp:    cfg.Temperature,
		topP:    cfg.TopP,
		timeout: timeout,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Blocks) == 0 {
		return "", errors.New("assistant: empty content")
	}

	parts := make([]openai.ChatMessagePart, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		switch b.Kind {
		case BlockText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: b.Text,
			})
		case BlockImage:
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: b.ImageURL},
			})
		}
	}

	system := BuildSystemPrompt(Signals{
		UserID: req.UserID,
		Page:   req.Page,
		Name:   req.Name,
		Email:  req.Email,
	})

	// Bounded call: no open-ended waits on the completion service.
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temp,
		TopP:        c.topP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return NoResponseSentinel, nil
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return NoResponseSentinel, nil
	}
	return text, nil
}
