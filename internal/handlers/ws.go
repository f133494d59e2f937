package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/topblame/ekani-crew-ai-server/internal/chat"
	"github.com/topblame/ekani-crew-ai-server/internal/ws"
)

// WSHandler serves the match-notification and chat websocket endpoints.
type WSHandler struct {
	registry *ws.Registry
	rooms    *chat.Manager
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(registry *ws.Registry, rooms *chat.Manager, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		rooms:    rooms,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // TODO: Add proper origin checking for production
			},
		},
		log: logger.With().Str("component", "ws-handler").Logger(),
	}
}

// HandleMatchSocket serves /ws/match/{userId}. The connection only receives
// pushed match notifications; inbound frames are drained and ignored.
func (h *WSHandler) HandleMatchSocket(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.registry.Register(userID, conn)
	defer h.registry.Unregister(userID, conn)

	h.log.Debug().Str("user", userID).Str("remote", r.RemoteAddr).Msg("match socket opened")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("user", userID).Msg("match socket unexpected close")
			}
			return
		}
	}
}

// HandleChatSocket serves /ws/chat/{roomId}. Each inbound chat frame is
// fanned out to every member of the room, the sender included.
func (h *WSHandler) HandleChatSocket(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	if h.rooms.Get(roomID) == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	if !h.rooms.Join(roomID, conn) {
		conn.WriteJSON(ws.NewMessage(ws.MsgError, ws.ErrorPayload{
			Code:    "ROOM_NOT_FOUND",
			Message: "room not found",
		}))
		return
	}
	defer h.rooms.Leave(roomID, conn)

	h.log.Debug().Str("room_id", roomID).Str("remote", r.RemoteAddr).Msg("chat socket opened")

	for {
		var frame ws.ChatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("room_id", roomID).Msg("chat socket unexpected close")
			}
			return
		}

		if frame.Content == "" {
			conn.WriteJSON(ws.NewMessage(ws.MsgError, ws.ErrorPayload{
				Code:    "EMPTY_MESSAGE",
				Message: "message content is required",
			}))
			continue
		}

		h.rooms.Broadcast(roomID, ws.NewMessage(ws.MsgChatMessage, ws.ChatBroadcast{
			MessageID: uuid.New().String(),
			RoomID:    roomID,
			SenderID:  frame.SenderID,
			Content:   frame.Content,
		}))
	}
}
