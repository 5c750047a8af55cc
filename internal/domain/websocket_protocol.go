package domain

import (
	"github.com/coder/websocket"
)

// MessageType defines the type of a WebSocket message in the json.v1 subprotocol.
const (
	MessageTypeReady        = "ready"
	MessageTypeNotification = "notification"
	MessageTypeError        = "error"

	StatusGoingAway websocket.StatusCode = 1001 // Standard code for server going away
)

// BaseMessage is the generic frame for all messages in the json.v1 subprotocol.
type BaseMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewReadyMessage creates a new message of type "ready".
func NewReadyMessage() BaseMessage {
	return BaseMessage{
		Type: MessageTypeReady,
	}
}

// NewNotificationMessage creates a "notification" frame carrying the event
// content verbatim.
func NewNotificationMessage(content NotificationContent) BaseMessage {
	return BaseMessage{
		Type:    MessageTypeNotification,
		Payload: content,
	}
}

// NewErrorMessage creates a new message of type "error".
func NewErrorMessage(errResp ErrorResponse) BaseMessage {
	return BaseMessage{
		Type:    MessageTypeError,
		Payload: errResp,
	}
}
