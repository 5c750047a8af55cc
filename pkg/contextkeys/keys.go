package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// EventIDKey is the context key for storing and retrieving a broker event ID.
	EventIDKey contextKey = "event_id"

	// UserIDKey is the context key for storing and retrieving the caller's user ID.
	UserIDKey contextKey = "user_id"

	// ConnectionIDKey is the context key for the live connection id of a websocket session.
	ConnectionIDKey contextKey = "connection_id"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
