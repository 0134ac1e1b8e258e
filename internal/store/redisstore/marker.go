// Package redisstore tracks which requests have already completed so a
// redelivered copy can be skipped. Best-effort: the pipeline stays
// correct (at-least-once, idempotent header reuse) without it.
package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	markerPrefix = "turn:done:"
	markerTTL    = 24 * time.Hour
)

type Marker struct {
	rdb *redis.Client
}

func NewMarker(addr, password string, db int) *Marker {
	return &Marker{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (m *Marker) Close() error { return m.rdb.Close() }

// Fingerprint derives the content address of a raw request payload.
func Fingerprint(rawRequest []byte) string {
	sum := sha256.Sum256(rawRequest)
	return hex.EncodeToString(sum[:])
}

// MarkDone records that the request with this fingerprint completed.
func (m *Marker) MarkDone(ctx context.Context, fingerprint string) error {
	return m.rdb.SetNX(ctx, markerPrefix+fingerprint, 1, markerTTL).Err()
}

// IsDone reports whether this fingerprint already completed. Errors are
// returned so callers can decide to proceed anyway.
func (m *Marker) IsDone(ctx context.Context, fingerprint string) (bool, error) {
	n, err := m.rdb.Exists(ctx, markerPrefix+fingerprint).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
