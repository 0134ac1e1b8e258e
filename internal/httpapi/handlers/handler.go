package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/chat"
	"github.com/invicto-ai/roma-assistant/internal/feedback"
)

// Enqueuer puts a raw request payload on the retry queue.
type Enqueuer interface {
	PublishRequest(ctx context.Context, rawRequest []byte) error
}

// DoneMarker records completed request fingerprints; may be nil.
type DoneMarker interface {
	MarkDone(ctx context.Context, fingerprint string) error
}

type Handler struct {
	ChatSvc     *chat.Service
	FeedbackSvc *feedback.Service
	Queue       Enqueuer
	Marker      DoneMarker
	Log         *zap.Logger
}

func NewHandler(chatSvc *chat.Service, feedbackSvc *feedback.Service, queue Enqueuer, marker DoneMarker, log *zap.Logger) *Handler {
	return &Handler{
		ChatSvc:     chatSvc,
		FeedbackSvc: feedbackSvc,
		Queue:       queue,
		Marker:      marker,
		Log:         log,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// fail returns a generic body; diagnostic detail stays in the logs.
func fail(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, gin.H{"error": msg})
}
