package ws

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	// Server messages
	MsgMatchSuccess MessageType = "match_success"
	MsgChatMessage  MessageType = "chat_message"
	MsgError        MessageType = "error"
)

// Message is the envelope for every frame the server pushes.
type Message struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	MessageID string      `json:"message_id"`
}

// ChatFrame is an inbound chat frame from a room member.
type ChatFrame struct {
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

// ChatBroadcast is the outbound chat payload fanned out to a room.
type ChatBroadcast struct {
	MessageID string `json:"message_id"`
	RoomID    string `json:"room_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
}

// ErrorPayload reports a handler-level problem over the socket.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewMessage(msgType MessageType, payload interface{}) Message {
	return Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		MessageID: uuid.New().String(),
	}
}
