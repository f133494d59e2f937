package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/database"
	"github.com/topblame/ekani-crew-ai-server/internal/kafka"
)

// MetricsServer provides HTTP API for match analytics metrics
type MetricsServer struct {
	consumer *kafka.Consumer
	repo     *database.Repository
	server   *http.Server
	router   *mux.Router
	log      zerolog.Logger
}

// MetricsResponse represents the structure of metrics API responses
type MetricsResponse struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	Error     string      `json:"error,omitempty"`
}

// NewMetricsServer creates a new metrics API server
func NewMetricsServer(consumer *kafka.Consumer, repo *database.Repository, addr string, logger zerolog.Logger) *MetricsServer {
	router := mux.NewRouter()

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ms := &MetricsServer{
		consumer: consumer,
		repo:     repo,
		server:   server,
		router:   router,
		log:      logger.With().Str("component", "metrics-server").Logger(),
	}

	ms.setupRoutes()
	return ms
}

// Start starts the metrics server
func (ms *MetricsServer) Start() error {
	return ms.server.ListenAndServe()
}

// Stop stops the metrics server
func (ms *MetricsServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ms.server.Shutdown(ctx)
}

func (ms *MetricsServer) setupRoutes() {
	ms.router.Use(ms.corsMiddleware)
	ms.router.Use(ms.loggingMiddleware)

	// Health check
	ms.router.HandleFunc("/health", ms.handleHealth).Methods("GET")

	// Consumer statistics
	ms.router.HandleFunc("/api/consumer/stats", ms.handleConsumerStats).Methods("GET")

	// Match metrics
	ms.router.HandleFunc("/api/metrics/realtime", ms.handleRealtimeMetrics).Methods("GET")
	ms.router.HandleFunc("/api/metrics/pairs", ms.handleTopPairs).Methods("GET")
	ms.router.HandleFunc("/api/metrics/pairs/persisted", ms.handlePersistedPairStats).Methods("GET")
	ms.router.HandleFunc("/api/metrics/matches/count", ms.handleMatchCount).Methods("GET")
}

// Middleware

func (ms *MetricsServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (ms *MetricsServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ms.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// Handler methods

func (ms *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := ms.consumer.GetStats()

	health := map[string]interface{}{
		"status":             "healthy",
		"uptime":             stats.Uptime.String(),
		"messages_processed": stats.MessagesProcessed,
		"messages_errored":   stats.MessagesErrored,
		"last_message":       stats.LastMessageTime,
	}

	ms.writeResponse(w, http.StatusOK, health)
}

func (ms *MetricsServer) handleConsumerStats(w http.ResponseWriter, r *http.Request) {
	ms.writeResponse(w, http.StatusOK, ms.consumer.GetStats())
}

func (ms *MetricsServer) handleRealtimeMetrics(w http.ResponseWriter, r *http.Request) {
	stats := ms.consumer.Processor().GetStats()

	realtime := map[string]interface{}{
		"users_waiting":     stats.UsersWaiting,
		"matches_this_hour": stats.MatchesThisHour,
		"matches_today":     stats.MatchesToday,
		"completed_waits":   stats.CompletedWaits,
		"average_wait":      stats.AverageWait.String(),
		"last_updated":      time.Now().UTC(),
	}

	ms.writeResponse(w, http.StatusOK, realtime)
}

func (ms *MetricsServer) handleTopPairs(w http.ResponseWriter, r *http.Request) {
	limit := ms.queryLimit(r, 10)
	ms.writeResponse(w, http.StatusOK, ms.consumer.Processor().TopPairs(limit))
}

func (ms *MetricsServer) handlePersistedPairStats(w http.ResponseWriter, r *http.Request) {
	limit := ms.queryLimit(r, 10)

	stats, err := ms.repo.GetPairStats(limit)
	if err != nil {
		ms.log.Error().Err(err).Msg("pair stats query failed")
		ms.writeError(w, http.StatusInternalServerError, "pair stats query failed")
		return
	}

	ms.writeResponse(w, http.StatusOK, stats)
}

func (ms *MetricsServer) handleMatchCount(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		if h, err := strconv.Atoi(hoursStr); err == nil && h > 0 {
			hours = h
		}
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	count, err := ms.repo.CountMatchesSince(since)
	if err != nil {
		ms.log.Error().Err(err).Msg("match count query failed")
		ms.writeError(w, http.StatusInternalServerError, "match count query failed")
		return
	}

	ms.writeResponse(w, http.StatusOK, map[string]interface{}{
		"since": since,
		"count": count,
	})
}

// Helper methods

func (ms *MetricsServer) queryLimit(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (ms *MetricsServer) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	response := MetricsResponse{
		Status:    "success",
		Timestamp: time.Now(),
		Data:      data,
	}

	if status >= 400 {
		response.Status = "error"
		if errMsg, ok := data.(string); ok {
			response.Error = errMsg
			response.Data = nil
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		ms.log.Error().Err(err).Msg("encode response failed")
	}
}

func (ms *MetricsServer) writeError(w http.ResponseWriter, status int, message string) {
	ms.writeResponse(w, status, message)
}
