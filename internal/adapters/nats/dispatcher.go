package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/metrics"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/contextkeys"
)

// Dispatch outcomes, used for logging and metrics.
const (
	outcomeDelivered      = "delivered"
	outcomeDroppedOffline = "dropped_offline"
	outcomeMalformed      = "malformed"
	outcomeWriteError     = "write_error"
)

// DispatcherAdapter subscribes to the notification subject and forwards each
// event to the recipient's live connection, if any. A single handler
// goroutine processes messages one at a time, so per-recipient delivery
// follows publish order. One malformed or undeliverable message never stops
// the loop: every message is acked exactly once regardless of outcome
// (at-most-once delivery).
type DispatcherAdapter struct {
	logger      domain.Logger
	cfgProvider config.Provider
	presence    domain.PresenceRegistry

	mu           sync.Mutex
	nc           *nats.Conn
	subscription *nats.Subscription
}

// NewDispatcherAdapter creates a new DispatcherAdapter. The subscription is
// not established until Start.
func NewDispatcherAdapter(cfgProvider config.Provider, presence domain.PresenceRegistry, logger domain.Logger) *DispatcherAdapter {
	return &DispatcherAdapter{
		logger:      logger,
		cfgProvider: cfgProvider,
		presence:    presence,
	}
}

// Start connects to the broker, ensures the notification stream, and begins
// continuous receipt on the service-wide queue group. Idempotent: a second
// Start while running is an error.
func (a *DispatcherAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.subscription != nil {
		return fmt.Errorf("notification dispatcher already started")
	}

	cfg := a.cfgProvider.Get()
	natsCfg := cfg.NATS

	a.logger.Info(ctx, "Connecting notification dispatcher to NATS", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-dispatcher", cfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			a.logger.Error(context.Background(), "NATS dispatcher error", "subscription", subject, "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			a.logger.Warn(context.Background(), "NATS dispatcher connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			a.logger.Info(context.Background(), "NATS dispatcher reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		a.logger.Error(ctx, "Failed to connect notification dispatcher to NATS", "url", natsCfg.URL, "error", err.Error())
		return fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js, natsCfg.StreamName, natsCfg.Subject); err != nil {
		nc.Close()
		return err
	}

	ackWait := time.Duration(natsCfg.AckWaitSeconds) * time.Second
	if ackWait <= 0 {
		ackWait = 30 * time.Second
	}

	sub, err := js.QueueSubscribe(
		natsCfg.Subject,
		natsCfg.ConsumerGroup,
		a.handleMessage,
		nats.Durable(natsCfg.ConsumerGroup),
		nats.DeliverNew(), // No replay of pre-outage notifications on startup.
		nats.ManualAck(),
		nats.AckWait(ackWait),
		nats.MaxAckPending(natsCfg.MaxAckPending),
	)
	if err != nil {
		nc.Close()
		a.logger.Error(ctx, "Failed to subscribe to notification subject",
			"subject", natsCfg.Subject, "queue_group", natsCfg.ConsumerGroup, "error", err.Error())
		return fmt.Errorf("failed to subscribe to NATS subject %s: %w", natsCfg.Subject, err)
	}

	a.nc = nc
	a.subscription = sub
	a.logger.Info(ctx, "Notification dispatcher started",
		"subject", natsCfg.Subject,
		"queue_group", natsCfg.ConsumerGroup,
		"stream", natsCfg.StreamName,
	)
	return nil
}

// Stop drains the subscription and closes the connection. Safe to call when
// not started.
func (a *DispatcherAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.subscription == nil {
		return nil
	}

	a.logger.Info(context.Background(), "Stopping notification dispatcher...")
	if err := a.subscription.Drain(); err != nil {
		a.logger.Error(context.Background(), "Error draining notification subscription", "error", err.Error())
	}
	a.subscription = nil

	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining dispatcher NATS connection", "error", err.Error())
		}
	}
	a.nc = nil

	a.logger.Info(context.Background(), "Notification dispatcher stopped")
	return nil
}

// Running reports whether the subscription is active.
func (a *DispatcherAdapter) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.subscription != nil
}

// handleMessage processes one broker message and acks it regardless of
// outcome: redelivering a malformed or undeliverable notification would
// never succeed, and the contract is at-most-once anyway.
func (a *DispatcherAdapter) handleMessage(msg *nats.Msg) {
	ctx := context.Background()
	if requestID := msg.Header.Get("X-Request-ID"); requestID != "" {
		ctx = context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
	}
	if eventID := msg.Header.Get("Nats-Msg-Id"); eventID != "" {
		ctx = context.WithValue(ctx, contextkeys.EventIDKey, eventID)
	}

	outcome := a.dispatch(ctx, msg.Data)
	metrics.ObserveEventConsumed(outcome)

	if err := msg.Ack(); err != nil {
		a.logger.Error(ctx, "Failed to ack notification message", "subject", msg.Subject, "error", err.Error())
	}
}

// dispatch parses the envelope and pushes the content to the recipient's
// live connection. It returns the outcome label and never panics or fails
// the loop: malformed payloads and offline recipients are normal, logged
// outcomes.
func (a *DispatcherAdapter) dispatch(ctx context.Context, data []byte) string {
	var event domain.NotificationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		a.logger.Error(ctx, "Skipping malformed notification payload", "error", err.Error(), "payload_len", len(data))
		return outcomeMalformed
	}
	if event.TargetUserID == "" {
		a.logger.Error(ctx, "Skipping notification without target user id", "content_type", event.Content.Type)
		return outcomeMalformed
	}

	conn, ok := a.presence.Lookup(event.TargetUserID)
	if !ok {
		a.logger.Debug(ctx, "Recipient not connected, dropping notification",
			"target_user_id", event.TargetUserID, "content_type", event.Content.Type)
		return outcomeDroppedOffline
	}

	if err := conn.WriteJSON(domain.NewNotificationMessage(event.Content)); err != nil {
		a.logger.Error(ctx, "Failed to push notification to live connection",
			"target_user_id", event.TargetUserID, "connection_id", conn.ID(), "error", err.Error())
		return outcomeWriteError
	}

	a.logger.Info(ctx, "Delivered notification",
		"target_user_id", event.TargetUserID, "connection_id", conn.ID(), "content_type", event.Content.Type)
	return outcomeDelivered
}
