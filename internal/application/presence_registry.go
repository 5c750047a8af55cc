package application

import (
	"sync"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

// PresenceRegistry is the in-memory mapping from a logical user identity to
// its single live connection. It is a process-wide singleton injected into
// the websocket handler (connect/disconnect) and the dispatcher (lookup);
// a mutex is sufficient given its low contention.
//
// Register is last-writer-wins: a user reconnecting from a new tab or device
// replaces the old mapping, and a late Unregister for the replaced
// connection id is a no-op. No multi-device fan-out is supported.
type PresenceRegistry struct {
	mu sync.RWMutex
	// userID -> live connection
	byUser map[string]domain.ManagedConnection
	// connectionID -> userID, so Unregister avoids a scan-by-value
	byConn map[string]string
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[string]domain.ManagedConnection),
		byConn: make(map[string]string),
	}
}

// Register maps userID to conn, replacing any prior mapping for that user.
func (r *PresenceRegistry) Register(userID string, conn domain.ManagedConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.byConn, prev.ID())
	}
	r.byUser[userID] = conn
	r.byConn[conn.ID()] = userID
}

// Unregister removes whichever user currently holds connectionID. A no-op
// when the connection was already replaced by a newer Register.
func (r *PresenceRegistry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return
	}
	delete(r.byConn, connectionID)
	// Only drop the user mapping if it still points at this connection.
	if current, ok := r.byUser[userID]; ok && current.ID() == connectionID {
		delete(r.byUser, userID)
	}
}

// Lookup returns the live connection for userID, if any. Absence is a
// normal outcome.
func (r *PresenceRegistry) Lookup(userID string) (domain.ManagedConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUser[userID]
	return conn, ok
}

// Size returns the number of live user mappings, exported for readiness
// reporting and metrics.
func (r *PresenceRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Connections returns a snapshot of every live connection, used to close
// them all during shutdown.
func (r *PresenceRegistry) Connections() []domain.ManagedConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]domain.ManagedConnection, 0, len(r.byUser))
	for _, conn := range r.byUser {
		conns = append(conns, conn)
	}
	return conns
}

var _ domain.PresenceRegistry = (*PresenceRegistry)(nil)
