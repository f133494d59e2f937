// Package handlers exposes the HTTP and WebSocket surface of the match
// service.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/kafka"
	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

// MatchHandler serves the match request, cancel and queue inspection routes.
type MatchHandler struct {
	coordinator *match.Coordinator
	analytics   *kafka.AnalyticsService
	log         zerolog.Logger
}

func NewMatchHandler(coordinator *match.Coordinator, analytics *kafka.AnalyticsService, logger zerolog.Logger) *MatchHandler {
	return &MatchHandler{
		coordinator: coordinator,
		analytics:   analytics,
		log:         logger.With().Str("component", "match-handler").Logger(),
	}
}

type matchRequest struct {
	UserID string `json:"user_id"`
	MBTI   string `json:"mbti"`
	Level  int    `json:"level"`
}

type cancelRequest struct {
	UserID string `json:"user_id"`
	MBTI   string `json:"mbti"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RequestMatch handles POST /match/request.
func (h *MatchHandler) RequestMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	m, err := mbti.Parse(req.MBTI)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	level := req.Level
	if level == 0 {
		level = mbti.LevelBest
	}
	if level < mbti.LevelBest || level > mbti.LevelAll {
		h.writeError(w, http.StatusBadRequest, "level must be between 1 and 4")
		return
	}

	result, err := h.coordinator.RequestMatch(r.Context(), req.UserID, m, level)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("match request failed")
		h.writeError(w, http.StatusInternalServerError, "match request failed")
		return
	}

	h.emitRequestEvents(req.UserID, m, level, result)
	h.writeJSON(w, http.StatusOK, result)
}

// CancelMatch handles POST /match/cancel.
func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	m, err := mbti.Parse(req.MBTI)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.coordinator.CancelMatch(r.Context(), req.UserID, m)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("cancel failed")
		h.writeError(w, http.StatusInternalServerError, "cancel failed")
		return
	}

	removed := result.Status == match.StatusCancelled
	h.analytics.EmitMatchCancelled(req.UserID, m, removed)
	if removed {
		h.analytics.EmitQueueLeft(req.UserID, m, "cancelled")
	}

	h.writeJSON(w, http.StatusOK, result)
}

// QueueSize handles GET /match/queue/{mbti}.
func (h *MatchHandler) QueueSize(w http.ResponseWriter, r *http.Request) {
	m, err := mbti.Parse(mux.Vars(r)["mbti"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.coordinator.WaitingCount(r.Context(), m)
	if err != nil {
		h.log.Error().Err(err).Stringer("mbti", m).Msg("queue size read failed")
		h.writeError(w, http.StatusInternalServerError, "queue size read failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"mbti":          m,
		"waiting_count": count,
	})
}

func (h *MatchHandler) emitRequestEvents(userID string, m mbti.MBTI, level int, result match.Result) {
	h.analytics.EmitMatchRequested(userID, m, level, string(result.Status))

	switch result.Status {
	case match.StatusWaitingResult:
		h.analytics.EmitQueueJoined(userID, m, result.WaitCount)
	case match.StatusMatchedResult:
		if result.Partner != nil {
			h.analytics.EmitMatchMade(
				result.RoomID,
				kafka.UserInfo{UserID: userID, MBTI: m},
				kafka.UserInfo{UserID: result.Partner.UserID, MBTI: result.Partner.MBTI},
				level,
			)
		}
	}
}

func (h *MatchHandler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("write response failed")
	}
}

func (h *MatchHandler) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, errorResponse{Status: "error", Message: message})
}
