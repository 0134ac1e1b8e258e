// Package redeliver re-runs previously failed turn requests consumed
// from the retry queue.
package redeliver

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/chat"
	"github.com/invicto-ai/roma-assistant/internal/store/rabbitmq"
	"github.com/invicto-ai/roma-assistant/internal/store/redisstore"
)

// DoneMarker tracks completed request fingerprints. A nil marker
// disables the check and redelivery falls back to the documented
// bounded-duplication behavior.
type DoneMarker interface {
	IsDone(ctx context.Context, fingerprint string) (bool, error)
	MarkDone(ctx context.Context, fingerprint string) error
}

type Handler struct {
	svc    *chat.Service
	marker DoneMarker
	log    *zap.Logger
}

func NewHandler(svc *chat.Service, marker DoneMarker, log *zap.Logger) *Handler {
	return &Handler{svc: svc, marker: marker, log: log}
}

// Summary counts the outcomes of one batch.
type Summary struct {
	Processed int
	Succeeded int
	Skipped   int
	Failed    int
}

// Process re-invokes the orchestrator for each queued envelope
// independently. Failures are recorded, never propagated: bounding the
// number of attempts is the queue infrastructure's concern, and one bad
// item must not poison the rest of the batch.
func (h *Handler) Process(ctx context.Context, bodies [][]byte) Summary {
	var sum Summary
	for _, body := range bodies {
		sum.Processed++
		switch h.processOne(ctx, body) {
		case outcomeSucceeded:
			sum.Succeeded++
		case outcomeSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}
	h.log.Info("redelivery_batch_done",
		zap.Int("processed", sum.Processed),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSucceeded
	outcomeSkipped
)

func (h *Handler) processOne(ctx context.Context, body []byte) outcome {
	var env rabbitmq.Envelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Payload) == 0 {
		h.log.Warn("redelivery_bad_envelope", zap.Error(err))
		return outcomeFailed
	}

	var req chat.TurnRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		h.log.Warn("redelivery_bad_payload",
			zap.String("delivery_id", env.DeliveryID),
			zap.Error(err),
		)
		return outcomeFailed
	}

	if !req.HasContent() {
		h.log.Warn("redelivery_skipped",
			zap.String("delivery_id", env.DeliveryID),
			zap.String("reason", "no valid content"),
		)
		return outcomeSkipped
	}

	fp := redisstore.Fingerprint(env.Payload)
	if h.marker != nil {
		done, err := h.marker.IsDone(ctx, fp)
		if err != nil {
			// Marker outage: proceed; a duplicate pair is the accepted
			// trade-off, a dropped request is not.
			h.log.Warn("redelivery_marker_unavailable",
				zap.String("delivery_id", env.DeliveryID),
				zap.Error(err),
			)
		} else if done {
			h.log.Info("redelivery_already_done",
				zap.String("delivery_id", env.DeliveryID),
				zap.String("conversation_id", req.ConversationID),
			)
			return outcomeSkipped
		}
	}

	res, err := h.svc.ProcessTurn(ctx, req)
	if err != nil {
		h.log.Error("redelivery_failed",
			zap.String("delivery_id", env.DeliveryID),
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err),
		)
		return outcomeFailed
	}

	if h.marker != nil {
		if err := h.marker.MarkDone(ctx, fp); err != nil {
			h.log.Warn("redelivery_mark_failed",
				zap.String("delivery_id", env.DeliveryID),
				zap.Error(err),
			)
		}
	}

	h.log.Info("redelivery_succeeded",
		zap.String("delivery_id", env.DeliveryID),
		zap.String("conversation_id", res.ConversationID),
		zap.String("reply_snippet", snippet(res.Reply, 100)),
	)
	return outcomeSucceeded
}

func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
