package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// Producer handles Kafka message production with async capabilities
type Producer struct {
	writer    *kafka.Writer
	isRunning bool
	mu        sync.RWMutex
	stats     ProducerStats
	log       zerolog.Logger
}

// ProducerStats tracks producer performance metrics
type ProducerStats struct {
	MessagesSent    int64     `json:"messages_sent"`
	MessagesErrored int64     `json:"messages_errored"`
	LastMessageTime time.Time `json:"last_message_time"`
	LastErrorTime   time.Time `json:"last_error_time"`
	LastError       string    `json:"last_error"`
}

// ProducerConfig holds configuration for the Kafka producer
type ProducerConfig struct {
	Brokers         []string      `json:"brokers"`
	Topic           string        `json:"topic"`
	RequiredAcks    int           `json:"required_acks"`
	BatchSize       int           `json:"batch_size"`
	BatchTimeout    time.Duration `json:"batch_timeout"`
	MaxMessageBytes int           `json:"max_message_bytes"`
	Compression     string        `json:"compression"`
	Retries         int           `json:"retries"`
}

// DefaultProducerConfig returns a production-ready configuration
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:         brokers,
		Topic:           "mbti-match-events",
		RequiredAcks:    1, // Wait for leader acknowledgment
		BatchSize:       100,
		BatchTimeout:    10 * time.Millisecond,
		MaxMessageBytes: 1000000, // 1MB
		Compression:     "snappy",
		Retries:         3,
	}
}

// NewProducer creates a new async Kafka producer
func NewProducer(config ProducerConfig, logger zerolog.Logger) (*Producer, error) {
	var compression kafka.Compression
	switch config.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	default:
		compression = kafka.Snappy
	}

	log := logger.With().Str("component", "kafka-producer").Logger()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{}, // consistent partitioning per key
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		Async:        true,
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		Compression:  compression,
		MaxAttempts:  config.Retries,
		BatchBytes:   int64(config.MaxMessageBytes),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Msgf(msg, args...)
		}),
	}

	return &Producer{
		writer:    writer,
		isRunning: true,
		log:       log,
	}, nil
}

// Close gracefully shuts down the producer
func (p *Producer) Close() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	return p.writer.Close()
}

// SendMessage sends a message to Kafka asynchronously
func (p *Producer) SendMessage(key string, value []byte) error {
	p.mu.RLock()
	if !p.isRunning {
		p.mu.RUnlock()
		return fmt.Errorf("producer is not running")
	}
	p.mu.RUnlock()

	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	err := p.writer.WriteMessages(context.Background(), message)

	p.mu.Lock()
	if err != nil {
		p.stats.MessagesErrored++
		p.stats.LastErrorTime = time.Now()
		p.stats.LastError = err.Error()
	} else {
		p.stats.MessagesSent++
		p.stats.LastMessageTime = time.Now()
	}
	p.mu.Unlock()

	return err
}

// GetStats returns current producer statistics
func (p *Producer) GetStats() ProducerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// AnalyticsService provides high-level match event emission. Emission is
// best-effort: failures are logged and never propagate to the request path.
type AnalyticsService struct {
	producer *Producer
	enabled  bool
	metadata Metadata
	log      zerolog.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(producer *Producer, enabled bool, logger zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		producer: producer,
		enabled:  enabled,
		metadata: Metadata{Version: "1"},
		log:      logger.With().Str("component", "analytics").Logger(),
	}
}

// IsEnabled returns whether analytics is enabled
func (a *AnalyticsService) IsEnabled() bool {
	return a.enabled
}

func (a *AnalyticsService) base(eventType EventType) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		EventID:   uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Metadata:  a.metadata,
	}
}

// EmitMatchRequested emits a match_requested event.
func (a *AnalyticsService) EmitMatchRequested(userID string, m mbti.MBTI, level int, result string) {
	if !a.enabled {
		return
	}
	a.send(EventMatchRequested, userID, MatchRequestedEvent{
		BaseEvent: a.base(EventMatchRequested),
		User:      UserInfo{UserID: userID, MBTI: m},
		Level:     level,
		Result:    result,
	})
}

// EmitQueueJoined emits a queue_joined event.
func (a *AnalyticsService) EmitQueueJoined(userID string, m mbti.MBTI, waitCount int) {
	if !a.enabled {
		return
	}
	a.send(EventQueueJoined, userID, QueueJoinedEvent{
		BaseEvent: a.base(EventQueueJoined),
		User:      UserInfo{UserID: userID, MBTI: m},
		WaitCount: waitCount,
	})
}

// EmitQueueLeft emits a queue_left event.
func (a *AnalyticsService) EmitQueueLeft(userID string, m mbti.MBTI, reason string) {
	if !a.enabled {
		return
	}
	a.send(EventQueueLeft, userID, QueueLeftEvent{
		BaseEvent: a.base(EventQueueLeft),
		User:      UserInfo{UserID: userID, MBTI: m},
		Reason:    reason,
	})
}

// EmitMatchMade emits a match_made event keyed by room id.
func (a *AnalyticsService) EmitMatchMade(roomID string, requester, partner UserInfo, level int) {
	if !a.enabled {
		return
	}
	a.send(EventMatchMade, roomID, MatchMadeEvent{
		BaseEvent: a.base(EventMatchMade),
		RoomID:    roomID,
		Requester: requester,
		Partner:   partner,
		Level:     level,
		Users:     []UserInfo{requester, partner},
	})
}

// EmitMatchCancelled emits a match_cancelled event.
func (a *AnalyticsService) EmitMatchCancelled(userID string, m mbti.MBTI, removed bool) {
	if !a.enabled {
		return
	}
	a.send(EventMatchCancelled, userID, MatchCancelledEvent{
		BaseEvent: a.base(EventMatchCancelled),
		User:      UserInfo{UserID: userID, MBTI: m},
		Removed:   removed,
	})
}

func (a *AnalyticsService) send(eventType EventType, key string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		a.log.Error().Err(err).Str("event_type", string(eventType)).Msg("marshal event failed")
		return
	}

	messageKey := fmt.Sprintf("%s:%s", eventType, key)
	if err := a.producer.SendMessage(messageKey, payload); err != nil {
		a.log.Warn().Err(err).Str("event_type", string(eventType)).Msg("send event failed")
	}
}
