package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/coder/websocket"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

type testLogger struct{}

func (testLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (testLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (testLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (testLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (testLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l testLogger) With(fields ...any) domain.Logger { return l }

type testConn struct {
	id       string
	writes   []any
	writeErr error
}

func (c *testConn) ID() string { return c.id }
func (c *testConn) WriteJSON(v interface{}) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, v)
	return nil
}
func (c *testConn) Close(statusCode websocket.StatusCode, reason string) error { return nil }
func (c *testConn) RemoteAddr() string { return "127.0.0.1:0" }
func (c *testConn) Context() context.Context { return context.Background() }

type testPresence struct {
	conns map[string]domain.ManagedConnection
}

func (p *testPresence) Register(userID string, conn domain.ManagedConnection) {
	p.conns[userID] = conn
}
func (p *testPresence) Unregister(connectionID string) {}
func (p *testPresence) Lookup(userID string) (domain.ManagedConnection, bool) {
	conn, ok := p.conns[userID]
	return conn, ok
}

func newTestDispatcher(presence domain.PresenceRegistry) *DispatcherAdapter {
	return &DispatcherAdapter{logger: testLogger{}, presence: presence}
}

func envelope(t *testing.T, event domain.NotificationEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestDispatchDeliversToLiveConnection(t *testing.T) {
	conn := &testConn{id: "conn-1"}
	presence := &testPresence{conns: map[string]domain.ManagedConnection{"alice": conn}}
	d := newTestDispatcher(presence)

	event := domain.NotificationEvent{
		TargetUserID: "alice",
		Content:      domain.NotificationContent{Type: domain.NotificationTypePost, Message: "New post created: hi", PostID: "p1"},
	}

	outcome := d.dispatch(context.Background(), envelope(t, event))
	if outcome != outcomeDelivered {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeDelivered)
	}
	if len(conn.writes) != 1 {
		t.Fatalf("wrote %d frames, want 1", len(conn.writes))
	}

	frame, ok := conn.writes[0].(domain.BaseMessage)
	if !ok {
		t.Fatalf("frame type = %T", conn.writes[0])
	}
	if frame.Type != domain.MessageTypeNotification {
		t.Fatalf("frame.Type = %q", frame.Type)
	}
	content, ok := frame.Payload.(domain.NotificationContent)
	if !ok || content.PostID != "p1" {
		t.Fatalf("frame.Payload = %+v", frame.Payload)
	}
}

func TestDispatchDropsWhenRecipientOffline(t *testing.T) {
	d := newTestDispatcher(&testPresence{conns: map[string]domain.ManagedConnection{}})

	event := domain.NotificationEvent{
		TargetUserID: "ghost",
		Content:      domain.NotificationContent{Type: domain.NotificationTypeComment},
	}

	if outcome := d.dispatch(context.Background(), envelope(t, event)); outcome != outcomeDroppedOffline {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeDroppedOffline)
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	d := newTestDispatcher(&testPresence{conns: map[string]domain.ManagedConnection{}})

	if outcome := d.dispatch(context.Background(), []byte("{broken")); outcome != outcomeMalformed {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeMalformed)
	}
}

func TestDispatchMissingTargetUser(t *testing.T) {
	d := newTestDispatcher(&testPresence{conns: map[string]domain.ManagedConnection{}})

	event := domain.NotificationEvent{Content: domain.NotificationContent{Type: domain.NotificationTypePost}}
	if outcome := d.dispatch(context.Background(), envelope(t, event)); outcome != outcomeMalformed {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeMalformed)
	}
}

func TestDispatchWriteError(t *testing.T) {
	conn := &testConn{id: "conn-1", writeErr: errors.New("connection reset")}
	presence := &testPresence{conns: map[string]domain.ManagedConnection{"alice": conn}}
	d := newTestDispatcher(presence)

	event := domain.NotificationEvent{
		TargetUserID: "alice",
		Content:      domain.NotificationContent{Type: domain.NotificationTypePost},
	}

	if outcome := d.dispatch(context.Background(), envelope(t, event)); outcome != outcomeWriteError {
		t.Fatalf("outcome = %q, want %q", outcome, outcomeWriteError)
	}
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	d := newTestDispatcher(&testPresence{conns: map[string]domain.ManagedConnection{}})

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
	if d.Running() {
		t.Fatal("Running() must be false before Start")
	}
}
