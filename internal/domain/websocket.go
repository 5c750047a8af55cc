package domain

import (
	"context"

	"github.com/coder/websocket"
)

// ManagedConnection represents an active WebSocket connection managed by the
// system. It defines the operations the presence registry and the dispatcher
// need to interact with an established connection.
type ManagedConnection interface {
	// ID returns the opaque connection id assigned at handshake time.
	ID() string

	// WriteJSON sends a JSON-encoded message to the client.
	WriteJSON(v interface{}) error

	// Close attempts to close the connection with a status code and reason.
	Close(statusCode websocket.StatusCode, reason string) error

	// RemoteAddr returns the remote network address string of the client.
	RemoteAddr() string

	// Context returns the context tied to this connection's lifetime.
	Context() context.Context
}
