package event

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TopicSecurityEvents receives every authentication outcome worth auditing
const TopicSecurityEvents = "auth.security-events"

// Type names a security event
type Type string

const (
	LoginSucceeded       Type = "login.succeeded"
	LoginFailed          Type = "login.failed"
	RefreshReuseDetected Type = "refresh.reuse_detected"
	LogoutCompleted      Type = "logout"
)

// SecurityEvent is the audit record published to Kafka. It never carries
// secrets: no passwords and no tokens. RevokedTokens counts refresh tokens
// revoked as a side effect.
type SecurityEvent struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	UserID        string    `json:"user_id,omitempty"`
	Identifier    string    `json:"identifier,omitempty"`
	Method        string    `json:"method,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RevokedTokens int64     `json:"revoked_tokens,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers security events. Implementations must not block the
// caller on broker latency and must never fail the calling operation.
type Publisher interface {
	Publish(ctx context.Context, evt *SecurityEvent)
	Close() error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewID returns a time-ordered ULID
func NewID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// New builds an event of typ stamped at now
func New(typ Type) *SecurityEvent {
	now := time.Now().UTC()
	return &SecurityEvent{ID: NewID(now), Type: typ, OccurredAt: now}
}

// NoopPublisher drops events; used when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *SecurityEvent) {}
func (NoopPublisher) Close() error                            { return nil }
