package domain

// PresenceRegistry maps a logical user identity to its single live connection.
// Register is last-writer-wins: a new connection for a user silently replaces
// any prior mapping (no multi-device fan-out). Unregister removes whichever
// user currently holds the given connection id and is a no-op for a
// connection that was already replaced. Lookup absence is a normal outcome.
type PresenceRegistry interface {
	Register(userID string, conn ManagedConnection)
	Unregister(connectionID string)
	Lookup(userID string) (ManagedConnection, bool)
}
