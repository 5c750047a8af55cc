package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/metrics"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/contextkeys"
)

// ErrBrokerUnavailable is returned by Publish once the connection has been
// permanently closed (reconnect budget exhausted). Callers on the write path
// ignore it; it exists so the degraded state is observable.
var ErrBrokerUnavailable = errors.New("notification broker connection is closed")

// ProducerAdapter implements domain.EventPublisher over NATS JetStream.
//
// The connection is established lazily on first publish and reused; connect
// is idempotent and safe to race. Publish failures are logged and returned,
// never escalated: a broker outage degrades the system to "no live
// notifications", not "no mutations".
type ProducerAdapter struct {
	logger      domain.Logger
	cfgProvider config.Provider

	mu sync.Mutex
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewProducerAdapter creates a new ProducerAdapter. No connection is made
// until the first Publish.
func NewProducerAdapter(cfgProvider config.Provider, logger domain.Logger) (*ProducerAdapter, func()) {
	adapter := &ProducerAdapter{
		logger:      logger,
		cfgProvider: cfgProvider,
	}
	cleanup := func() {
		adapter.Close()
	}
	return adapter, cleanup
}

// connect establishes the NATS connection and JetStream context if not
// already connected. Callers must hold a.mu.
func (a *ProducerAdapter) connect(ctx context.Context) error {
	if a.nc != nil {
		if a.nc.IsClosed() {
			// Reconnect budget was exhausted and the client gave up; stay
			// failed fast instead of dialing forever.
			return ErrBrokerUnavailable
		}
		return nil
	}

	cfg := a.cfgProvider.Get()
	natsCfg := cfg.NATS

	a.logger.Info(ctx, "Connecting notification producer to NATS", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-producer", cfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ClosedHandler(func(c *nats.Conn) {
			a.logger.Warn(context.Background(), "NATS producer connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			a.logger.Info(context.Background(), "NATS producer reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			a.logger.Warn(context.Background(), "NATS producer disconnected", "error", err)
		}),
	)
	if err != nil {
		a.logger.Error(ctx, "Failed to connect notification producer to NATS", "url", natsCfg.URL, "error", err.Error())
		return fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		a.logger.Error(ctx, "Failed to get JetStream context for producer", "error", err.Error())
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js, natsCfg.StreamName, natsCfg.Subject); err != nil {
		a.logger.Warn(ctx, "Failed to ensure notification stream, publishes may fail until it exists",
			"stream", natsCfg.StreamName, "error", err.Error())
	}

	a.nc = nc
	a.js = js
	a.logger.Info(ctx, "Notification producer connected to NATS", "url", nc.ConnectedUrl())
	return nil
}

// Publish serializes the event and sends it to the fixed notification
// subject. Failures are logged here (the central place) and returned so
// callers may observe them, but the write path ignores the result.
func (a *ProducerAdapter) Publish(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.ObserveEventPublished("error")
		a.logger.Error(ctx, "Failed to marshal notification event", "target_user_id", event.TargetUserID, "error", err.Error())
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.connect(ctx); err != nil {
		metrics.ObserveEventPublished("error")
		a.logger.Error(ctx, "Notification publish skipped, broker unavailable",
			"target_user_id", event.TargetUserID, "error", err.Error())
		return err
	}

	subject := a.cfgProvider.Get().NATS.Subject
	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set("Nats-Msg-Id", uuid.NewString())
	if requestID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok && requestID != "" {
		msg.Header.Set("X-Request-ID", requestID)
	}

	if _, err := a.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		metrics.ObserveEventPublished("error")
		a.logger.Error(ctx, "Failed to publish notification event",
			"subject", subject, "target_user_id", event.TargetUserID, "error", err.Error())
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	metrics.ObserveEventPublished("ok")
	a.logger.Debug(ctx, "Published notification event",
		"subject", subject, "target_user_id", event.TargetUserID, "content_type", event.Content.Type)
	return nil
}

// Close drains the producer connection if one was established.
func (a *ProducerAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nc != nil && !a.nc.IsClosed() {
		a.logger.Info(context.Background(), "Draining NATS producer connection...")
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS producer connection", "error", err.Error())
		}
	}
}

// ensureStream creates the notification stream when it does not exist yet.
// Both producer and dispatcher call this so either side can start first.
func ensureStream(js nats.JetStreamContext, streamName, subject string) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}
	return nil
}
