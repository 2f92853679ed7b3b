package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/pkg/logger"
	"github.com/prohmpiriya/hr-identity/pkg/response"
)

const (
	// IdempotencyKeyHeader lets admin clients retry create calls safely
	IdempotencyKeyHeader = "Idempotency-Key"

	idempotencyKeyPrefix = "idempotency:"
	maxIdempotencyKey    = 128
)

type replayState string

const (
	replayProcessing replayState = "processing"
	replayCompleted  replayState = "completed"
)

// replayRecord is what the store keeps per key
type replayRecord struct {
	State       replayState `json:"state"`
	RequestHash string      `json:"request_hash"`
	Status      int         `json:"status,omitempty"`
	Body        string      `json:"body,omitempty"`
}

// ReplayStore is the subset of go-redis the middleware needs
type ReplayStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds idempotency settings
type IdempotencyConfig struct {
	Store ReplayStore
	// TTL keeps completed responses for replay
	TTL time.Duration
	// ProcessingTTL bounds how long an unfinished request holds its key
	ProcessingTTL time.Duration
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key. Keys are scoped to the caller and bound to the request
// body; reusing one for a different request is rejected. Requests without the
// header, or with no store configured, pass through. Store errors fail open.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = time.Minute
	}
	log := logger.Get().With(zap.String("component", "idempotency"))

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKey {
			response.Abort(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Abort(c, http.StatusBadRequest, "BAD_REQUEST", "unreadable request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		storeKey := idempotencyKeyPrefix + c.GetString(UserIDKey) + ":" + key
		hash := requestHash(c, body)

		pending, _ := json.Marshal(replayRecord{State: replayProcessing, RequestHash: hash})
		claimed, err := cfg.Store.SetNX(ctx, storeKey, pending, cfg.ProcessingTTL).Result()
		if err != nil {
			log.WarnContext(ctx, "Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			replay(c, cfg.Store, storeKey, hash)
			return
		}

		rw := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = rw
		c.Next()

		// Failed requests may be retried with the same key
		if rw.Status() >= http.StatusInternalServerError {
			cfg.Store.Del(ctx, storeKey)
			return
		}
		done, _ := json.Marshal(replayRecord{
			State:       replayCompleted,
			RequestHash: hash,
			Status:      rw.Status(),
			Body:        rw.body.String(),
		})
		if err := cfg.Store.Set(ctx, storeKey, done, cfg.TTL).Err(); err != nil {
			log.WarnContext(ctx, "Failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store ReplayStore, storeKey, hash string) {
	raw, err := store.Get(c.Request.Context(), storeKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; let the client retry
		response.Abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "Request is being processed, retry later")
		return
	}
	var rec replayRecord
	if err == nil {
		err = json.Unmarshal([]byte(raw), &rec)
	}
	if err != nil {
		c.Next()
		return
	}

	switch {
	case rec.RequestHash != hash:
		response.Abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency-Key was used for a different request")
	case rec.State == replayProcessing:
		response.Abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "Request is being processed, retry later")
	default:
		c.Header("Idempotent-Replayed", "true")
		c.Data(rec.Status, "application/json; charset=utf-8", []byte(rec.Body))
		c.Abort()
	}
}

func requestHash(c *gin.Context, body []byte) string {
	h := sha256.New()
	h.Write([]byte(c.Request.Method))
	h.Write([]byte{0})
	h.Write([]byte(c.Request.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// capturingWriter copies the response body for later replay
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
