package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/topblame/ekani-crew-ai-server/internal/config"
	"github.com/topblame/ekani-crew-ai-server/internal/handlers"
)

type Server struct {
	httpServer *http.Server
	config     *config.Config
}

func NewServer(cfg *config.Config, matchHandler *handlers.MatchHandler, wsHandler *handlers.WSHandler) *Server {
	router := mux.NewRouter()

	// WebSocket endpoints
	router.HandleFunc("/ws/match/{userId}", wsHandler.HandleMatchSocket)
	router.HandleFunc("/ws/chat/{roomId}", wsHandler.HandleChatSocket)

	// REST API endpoints
	router.HandleFunc("/match/request", matchHandler.RequestMatch).Methods("POST")
	router.HandleFunc("/match/cancel", matchHandler.CancelMatch).Methods("POST")
	router.HandleFunc("/match/queue/{mbti}", matchHandler.QueueSize).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// CORS middleware
	router.Use(corsMiddleware)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		config:     cfg,
	}
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
