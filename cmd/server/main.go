package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/chat"
	"github.com/topblame/ekani-crew-ai-server/internal/config"
	"github.com/topblame/ekani-crew-ai-server/internal/handlers"
	"github.com/topblame/ekani-crew-ai-server/internal/kafka"
	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/memstore"
	"github.com/topblame/ekani-crew-ai-server/internal/redisstore"
	"github.com/topblame/ekani-crew-ai-server/internal/server"
	"github.com/topblame/ekani-crew-ai-server/internal/ws"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found")
	}

	cfg := config.Load()

	// Queue and state storage
	queue, states, cleanup, err := buildStores(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("store initialization failed")
	}
	defer cleanup()

	// Kafka producer for match analytics
	kafkaConfig := kafka.DefaultProducerConfig(cfg.KafkaBrokers)
	kafkaProducer, err := kafka.NewProducer(kafkaConfig, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("kafka producer creation failed")
	}
	defer kafkaProducer.Close()
	analyticsService := kafka.NewAnalyticsService(kafkaProducer, cfg.AnalyticsEnabled, logger)

	// Core services
	registry := ws.NewRegistry(logger)
	rooms := chat.NewManager(logger)
	notifier := ws.NewNotifier(registry, logger)
	coordinator := match.NewCoordinator(queue, states, rooms, notifier, cfg.MatchExpire, logger)

	// Handlers and server
	matchHandler := handlers.NewMatchHandler(coordinator, analyticsService, logger)
	wsHandler := handlers.NewWSHandler(registry, rooms, logger)
	srv := server.NewServer(cfg, matchHandler, wsHandler)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("server starting")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// buildStores wires the queue and state ports to Redis, or to the in-process
// store when STORE_BACKEND=memory.
func buildStores(cfg *config.Config, logger zerolog.Logger) (match.Queue, match.StateStore, func(), error) {
	if cfg.StoreBackend == "memory" {
		return memstore.NewQueue(), memstore.NewStateStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("redis close failed")
		}
	}
	return redisstore.NewQueue(rdb, logger), redisstore.NewStateStore(rdb, logger), cleanup, nil
}
