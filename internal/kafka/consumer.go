package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/topblame/ekani-crew-ai-server/internal/database"
)

// Consumer handles Kafka message consumption and analytics processing
type Consumer struct {
	reader    *kafka.Reader
	processor *EventProcessor
	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
	stats     ConsumerStats
	log       zerolog.Logger
}

// ConsumerStats tracks consumer performance metrics
type ConsumerStats struct {
	MessagesProcessed int64         `json:"messages_processed"`
	MessagesErrored   int64         `json:"messages_errored"`
	LastMessageTime   time.Time     `json:"last_message_time"`
	LastErrorTime     time.Time     `json:"last_error_time"`
	LastError         string        `json:"last_error"`
	StartTime         time.Time     `json:"start_time"`
	Uptime            time.Duration `json:"uptime"`
}

// ConsumerConfig holds configuration for the Kafka consumer
type ConsumerConfig struct {
	Brokers        []string      `json:"brokers"`
	Topic          string        `json:"topic"`
	GroupID        string        `json:"group_id"`
	MinBytes       int           `json:"min_bytes"`
	MaxBytes       int           `json:"max_bytes"`
	MaxWait        time.Duration `json:"max_wait"`
	StartOffset    int64         `json:"start_offset"`
	CommitInterval time.Duration `json:"commit_interval"`
}

// DefaultConsumerConfig returns a production-ready consumer configuration
func DefaultConsumerConfig(brokers []string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:        brokers,
		Topic:          "mbti-match-events",
		GroupID:        "match-analytics",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: 1 * time.Second,
	}
}

// NewConsumer creates a new Kafka consumer with analytics processing
func NewConsumer(config ConsumerConfig, repo *database.Repository, logger zerolog.Logger) (*Consumer, error) {
	log := logger.With().Str("component", "kafka-consumer").Logger()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       config.MinBytes,
		MaxBytes:       config.MaxBytes,
		MaxWait:        config.MaxWait,
		StartOffset:    config.StartOffset,
		CommitInterval: config.CommitInterval,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Msgf(msg, args...)
		}),
	})

	return &Consumer{
		reader:    reader,
		processor: NewEventProcessor(repo, logger),
		stopChan:  make(chan struct{}),
		stats:     ConsumerStats{StartTime: time.Now()},
		log:       log,
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}
	c.isRunning = true
	c.mu.Unlock()

	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting consumer")

	c.wg.Add(1)
	go c.processMessages(ctx)

	c.wg.Add(1)
	go c.processor.StartAggregation(ctx, &c.wg)

	c.wg.Add(1)
	go c.reportStatistics(ctx)

	return nil
}

// Stop gracefully shuts down the consumer
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	c.log.Info().Msg("stopping consumer")
	close(c.stopChan)
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}
	if err := c.processor.Stop(); err != nil {
		return fmt.Errorf("failed to stop processor: %w", err)
	}

	c.log.Info().Msg("consumer stopped")
	return nil
}

// GetStats returns current consumer statistics
func (c *Consumer) GetStats() ConsumerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Uptime = time.Since(stats.StartTime)
	return stats
}

// Processor exposes the event processor for the metrics API.
func (c *Consumer) Processor() *EventProcessor {
	return c.processor
}

// processMessages is the main message processing loop
func (c *Consumer) processMessages(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		default:
			message, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.updateStats(false, err)
				c.log.Error().Err(err).Msg("read message failed")
				continue
			}

			if err := c.processor.ProcessMessage(message); err != nil {
				c.updateStats(false, err)
				c.log.Error().Err(err).Str("key", string(message.Key)).Msg("process message failed")
			} else {
				c.updateStats(true, nil)
			}
		}
	}
}

// reportStatistics periodically reports consumer statistics
func (c *Consumer) reportStatistics(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.logStatistics()
		}
	}
}

func (c *Consumer) updateStats(success bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if success {
		c.stats.MessagesProcessed++
		c.stats.LastMessageTime = time.Now()
	} else {
		c.stats.MessagesErrored++
		c.stats.LastErrorTime = time.Now()
		if err != nil {
			c.stats.LastError = err.Error()
		}
	}
}

func (c *Consumer) logStatistics() {
	stats := c.GetStats()
	processorStats := c.processor.GetStats()

	event := c.log.Info().
		Dur("uptime", stats.Uptime.Round(time.Second)).
		Int64("messages_processed", stats.MessagesProcessed).
		Int64("messages_errored", stats.MessagesErrored).
		Int("users_waiting", processorStats.UsersWaiting).
		Int64("matches_today", processorStats.MatchesToday).
		Int64("matches_this_hour", processorStats.MatchesThisHour)

	if stats.MessagesProcessed > 0 && stats.Uptime > 0 {
		event = event.Float64("rate_per_sec", float64(stats.MessagesProcessed)/stats.Uptime.Seconds())
	}
	if stats.LastError != "" {
		event = event.Str("last_error", stats.LastError)
	}
	event.Msg("consumer statistics")
}

// EventProcessor folds match events into the in-memory trackers and the
// database aggregator.
type EventProcessor struct {
	repo          *database.Repository
	aggregator    *MetricsAggregator
	queueTracker  *QueueTracker
	pairTracker   *PairTracker
	hourlyTracker *HourlyTracker
	mu            sync.RWMutex
	stopChan      chan struct{}
	isRunning     bool
	log           zerolog.Logger
}

// ProcessorStats tracks event processor statistics
type ProcessorStats struct {
	UsersWaiting    int           `json:"users_waiting"`
	MatchesToday    int64         `json:"matches_today"`
	MatchesThisHour int64         `json:"matches_this_hour"`
	CompletedWaits  int64         `json:"completed_waits"`
	AverageWait     time.Duration `json:"average_wait"`
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(repo *database.Repository, logger zerolog.Logger) *EventProcessor {
	return &EventProcessor{
		repo:          repo,
		aggregator:    NewMetricsAggregator(repo, logger),
		queueTracker:  NewQueueTracker(),
		pairTracker:   NewPairTracker(),
		hourlyTracker: NewHourlyTracker(),
		stopChan:      make(chan struct{}),
		log:           logger.With().Str("component", "event-processor").Logger(),
	}
}

// StartAggregation flushes aggregated metrics on a fixed interval.
func (ep *EventProcessor) StartAggregation(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ep.mu.Lock()
	ep.isRunning = true
	ep.mu.Unlock()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ep.stopChan:
			return
		case <-ticker.C:
			if err := ep.aggregator.Flush(); err != nil {
				ep.log.Error().Err(err).Msg("flush metrics failed")
			}
		}
	}
}

// Stop stops the event processor and flushes whatever is buffered.
func (ep *EventProcessor) Stop() error {
	ep.mu.Lock()
	if !ep.isRunning {
		ep.mu.Unlock()
		return nil
	}
	ep.isRunning = false
	ep.mu.Unlock()

	close(ep.stopChan)
	return ep.aggregator.Flush()
}

// ProcessMessage processes a single Kafka message
func (ep *EventProcessor) ProcessMessage(message kafka.Message) error {
	var baseEvent BaseEvent
	if err := json.Unmarshal(message.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to parse base event: %w", err)
	}

	switch baseEvent.EventType {
	case EventMatchRequested:
		return ep.processMatchRequested(message.Value)
	case EventQueueJoined:
		return ep.processQueueJoined(message.Value)
	case EventQueueLeft:
		return ep.processQueueLeft(message.Value)
	case EventMatchMade:
		return ep.processMatchMade(message.Value)
	case EventMatchCancelled:
		return ep.processMatchCancelled(message.Value)
	default:
		ep.log.Warn().Str("event_type", string(baseEvent.EventType)).Msg("unknown event type")
		return nil
	}
}

// GetStats returns current processor statistics
func (ep *EventProcessor) GetStats() ProcessorStats {
	waitStats := ep.queueTracker.Stats()
	return ProcessorStats{
		UsersWaiting:    ep.queueTracker.TotalWaiting(),
		MatchesToday:    ep.hourlyTracker.MatchesToday(),
		MatchesThisHour: ep.hourlyTracker.MatchesThisHour(),
		CompletedWaits:  waitStats.Completed,
		AverageWait:     ep.queueTracker.AverageWait(),
	}
}

// TopPairs returns the most frequent MBTI pairings seen so far.
func (ep *EventProcessor) TopPairs(n int) []PairCount {
	return ep.pairTracker.Top(n)
}

func (ep *EventProcessor) processMatchRequested(data []byte) error {
	var event MatchRequestedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}

	ep.log.Debug().
		Str("user_id", event.User.UserID).
		Str("mbti", string(event.User.MBTI)).
		Int("level", event.Level).
		Str("result", event.Result).
		Msg("match requested")
	return nil
}

func (ep *EventProcessor) processQueueJoined(data []byte) error {
	var event QueueJoinedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}

	ep.queueTracker.RecordJoin(event.User.UserID, event.User.MBTI, event.Timestamp)
	return nil
}

func (ep *EventProcessor) processQueueLeft(data []byte) error {
	var event QueueLeftEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}

	ep.queueTracker.RecordLeave(event.User.UserID)
	return nil
}

func (ep *EventProcessor) processMatchMade(data []byte) error {
	var event MatchMadeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}

	// The partner was the one waiting; the requester matched instantly.
	wait := ep.queueTracker.RecordMatched(event.Partner.UserID, event.Timestamp)
	ep.queueTracker.RecordMatched(event.Requester.UserID, event.Timestamp)

	ep.pairTracker.RecordMatch(event.Requester.MBTI, event.Partner.MBTI)
	ep.hourlyTracker.RecordMatch(event.Timestamp)
	ep.aggregator.RecordMatch(event, wait)

	ep.log.Debug().
		Str("room_id", event.RoomID).
		Str("requester", event.Requester.UserID).
		Str("partner", event.Partner.UserID).
		Dur("wait", wait).
		Msg("match made")
	return nil
}

func (ep *EventProcessor) processMatchCancelled(data []byte) error {
	var event MatchCancelledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}

	if event.Removed {
		ep.queueTracker.RecordLeave(event.User.UserID)
	}
	return nil
}
