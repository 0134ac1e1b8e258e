package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/fault"
	"github.com/invicto-ai/roma-assistant/internal/feedback"
)

func (h *Handler) Feedback(c *gin.Context) {
	var req feedback.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	row, err := h.FeedbackSvc.Record(c.Request.Context(), req)
	if err != nil {
		if fault.ClassOf(err) == fault.Validation {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.Log.Error("feedback_failed",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err),
		)
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	ok(c, gin.H{"ok": true, "saved": row})
}
