package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/chat"
	"github.com/invicto-ai/roma-assistant/internal/fault"
	"github.com/invicto-ai/roma-assistant/internal/store/redisstore"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Chat handles one user turn. On a retryable failure the original raw
// body, untouched, goes to the retry queue for later redelivery.
func (h *Handler) Chat(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}

	var req chat.TurnRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	if !req.HasContent() {
		h.Log.Warn("input_validation_failed",
			zap.String("user_id", req.UserID),
			zap.Int("image_count", len(req.ImageURLs)),
		)
		fail(c, http.StatusBadRequest, "Missing message or imageUrls")
		return
	}

	res, err := h.ChatSvc.ProcessTurn(c.Request.Context(), req)
	if err != nil {
		if fault.ClassOf(err) == fault.Validation {
			fail(c, http.StatusBadRequest, "invalid request")
			return
		}
		h.Log.Error("chat_turn_failed",
			zap.String("conversation_id", req.ConversationID),
			zap.String("class", string(fault.ClassOf(err))),
			zap.Error(err),
		)
		if fault.Retryable(err) && h.Queue != nil {
			if qerr := h.Queue.PublishRequest(c.Request.Context(), raw); qerr != nil {
				h.Log.Error("retry_enqueue_failed", zap.Error(qerr))
			}
		}
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	// Best-effort completion marker so a stale queued copy of this
	// request is skipped on redelivery.
	if h.Marker != nil {
		if merr := h.Marker.MarkDone(c.Request.Context(), redisstore.Fingerprint(raw)); merr != nil {
			h.Log.Warn("mark_done_failed", zap.Error(merr))
		}
	}

	ok(c, gin.H{
		"reply":          res.Reply,
		"conversationId": res.ConversationID,
	})
}
