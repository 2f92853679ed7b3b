package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/hr-identity/pkg/logger"
)

// JSONProducer is the part of pkg/kafka.Producer the publisher uses
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, value interface{}, headers map[string]string) error
	Close() error
}

// KafkaPublisher sends events in the background; failures are logged only
type KafkaPublisher struct {
	producer JSONProducer
	topic    string
	service  string
	timeout  time.Duration
	log      *logger.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// KafkaPublisherConfig configures a KafkaPublisher
type KafkaPublisherConfig struct {
	Topic       string
	ServiceName string
	Timeout     time.Duration
}

// NewKafkaPublisher creates a KafkaPublisher
func NewKafkaPublisher(producer JSONProducer, cfg *KafkaPublisherConfig, log *logger.Logger) *KafkaPublisher {
	if cfg.Topic == "" {
		cfg.Topic = TopicSecurityEvents
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    cfg.Topic,
		service:  cfg.ServiceName,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

// Publish sends evt in the background, keyed by user id (or identifier for failed logins)
func (p *KafkaPublisher) Publish(ctx context.Context, evt *SecurityEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("Security event dropped after shutdown", zap.String("event_type", string(evt.Type)))
		return
	}

	key := evt.UserID
	if key == "" {
		key = evt.Identifier
	}
	headers := map[string]string{
		"event-type": string(evt.Type),
		"event-id":   evt.ID,
		"source":     p.service,
	}

	sendCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		sendCtx, cancel := context.WithTimeout(sendCtx, p.timeout)
		defer cancel()
		if err := p.producer.ProduceJSON(sendCtx, p.topic, key, evt, headers); err != nil {
			p.log.ErrorContext(sendCtx, "Failed to publish security event",
				zap.String("event_type", string(evt.Type)),
				zap.String("event_id", evt.ID),
				zap.Error(err),
			)
		}
	}()
}

// Close waits for in-flight events, then closes the producer
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return p.producer.Close()
}
