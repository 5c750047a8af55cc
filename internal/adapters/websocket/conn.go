// Package websocket implements the live delivery channel: the upgrade
// handler and a managed connection wrapper with a buffered single-writer
// pipeline.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/safego"
)

// Connection wraps a websocket.Conn with an outbound buffer drained by a
// single writer goroutine, so the dispatcher and the read loop never write
// to the socket concurrently.
type Connection struct {
	id     string
	userID string

	wsConn *websocket.Conn
	logger domain.Logger

	connCtx       context.Context
	cancelConnCtx context.CancelFunc

	mu           sync.Mutex // protects wsConn and lastPongTime
	lastPongTime time.Time

	writeTimeoutSeconds int
	remoteAddrStr       string

	messageBuffer   chan []byte
	writerWg        sync.WaitGroup
	writerMu        sync.Mutex // protects isWriterRunning
	isWriterRunning bool
}

var _ domain.ManagedConnection = (*Connection)(nil)

// NewConnection creates a managed connection and starts its writer goroutine.
func NewConnection(
	connCtx context.Context,
	cancelFunc context.CancelFunc,
	wsConn *websocket.Conn,
	connID string,
	userID string,
	remoteAddr string,
	logger domain.Logger,
	cfgProvider config.Provider,
) *Connection {
	appCfg := cfgProvider.Get().App
	bufferCap := appCfg.WebsocketMessageBufferSize
	if bufferCap <= 0 {
		bufferCap = 100
		logger.Warn(connCtx, "WebsocketMessageBufferSize not configured or invalid, using default", "default_size", bufferCap)
	}

	c := &Connection{
		id:                  connID,
		userID:              userID,
		wsConn:              wsConn,
		logger:              logger,
		connCtx:             connCtx,
		cancelConnCtx:       cancelFunc,
		lastPongTime:        time.Now(),
		writeTimeoutSeconds: appCfg.WriteTimeoutSeconds,
		remoteAddrStr:       remoteAddr,
		messageBuffer:       make(chan []byte, bufferCap),
	}
	c.startWriter()
	return c
}

func (c *Connection) startWriter() {
	c.writerMu.Lock()
	if c.isWriterRunning {
		c.writerMu.Unlock()
		return
	}
	c.isWriterRunning = true
	c.writerMu.Unlock()

	c.writerWg.Add(1)
	safego.Execute(c.connCtx, c.logger, fmt.Sprintf("WebSocketWriter-%s", c.id), func() {
		defer c.writerWg.Done()
		for {
			select {
			case <-c.connCtx.Done():
				return
			case msgBytes, ok := <-c.messageBuffer:
				if !ok {
					return
				}
				if err := c.writeFrame(msgBytes); err != nil {
					if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
						c.logger.Error(c.connCtx, "Failed to write buffered message to WebSocket", "error", err.Error(), "connection_id", c.id)
						c.cancelConnCtx()
					}
					return
				}
			}
		}
	})
}

// writeFrame performs one socket write under the connection mutex. The write
// context is detached from connCtx so an in-flight frame can still complete
// while the connection is winding down.
func (c *Connection) writeFrame(msgBytes []byte) error {
	writeTimeout := time.Duration(c.writeTimeoutSeconds) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.connCtx.Done():
		return c.connCtx.Err()
	default:
	}
	if c.wsConn == nil {
		return errors.New("WebSocket connection is already closed")
	}
	return c.wsConn.Write(writeCtx, websocket.MessageText, msgBytes)
}

// ID returns the opaque connection id assigned at handshake time.
func (c *Connection) ID() string {
	return c.id
}

// UserID returns the identity bound to this connection at handshake time.
func (c *Connection) UserID() string {
	return c.userID
}

// Context returns the context tied to this connection's lifetime.
func (c *Connection) Context() context.Context {
	return c.connCtx
}

// RemoteAddr returns the remote network address string of the client.
func (c *Connection) RemoteAddr() string {
	return c.remoteAddrStr
}

// WriteJSON marshals v and queues it on the outbound buffer. When the buffer
// is full the oldest frame is dropped first; notifications are at-most-once
// and a slow client must not stall the dispatcher.
func (c *Connection) WriteJSON(v interface{}) error {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	select {
	case <-c.connCtx.Done():
		return c.connCtx.Err()
	default:
	}

	// The sends below must share a critical section with Close, which closes
	// messageBuffer under writerMu; a send outside it could hit a closed
	// channel. Every select here is non-blocking, so the lock is never held
	// across a wait.
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	if !c.isWriterRunning {
		return fmt.Errorf("writer not running for connection %s", c.id)
	}

	select {
	case c.messageBuffer <- msgBytes:
		return nil
	default:
	}

	// Buffer full: drop the oldest frame and retry once.
	select {
	case dropped := <-c.messageBuffer:
		c.logger.Warn(c.connCtx, "Outbound buffer full, dropped oldest frame", "connection_id", c.id, "dropped_len", len(dropped))
	default:
	}
	select {
	case c.messageBuffer <- msgBytes:
		return nil
	default:
		return fmt.Errorf("outbound buffer full for connection %s", c.id)
	}
}

// ReadMessage reads one data message. Control frames are handled by the
// library and never surface here.
func (c *Connection) ReadMessage(ctx context.Context) (websocket.MessageType, []byte, error) {
	return c.wsConn.Read(ctx)
}

// Ping sends a ping frame bounded by the write timeout.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn == nil {
		return errors.New("cannot ping: WebSocket connection is closed")
	}

	writeTimeout := time.Duration(c.writeTimeoutSeconds) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.wsConn.Ping(pingCtx)
}

// LastPongTime returns when the last pong arrived (or when the connection
// was established).
func (c *Connection) LastPongTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPongTime
}

// UpdateLastPongTime is called from the pong callback configured at accept.
func (c *Connection) UpdateLastPongTime() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPongTime = time.Now()
}

// Close stops the writer, cancels the connection context and closes the
// socket with the given status. Safe to call more than once.
func (c *Connection) Close(statusCode websocket.StatusCode, reason string) error {
	c.writerMu.Lock()
	if c.isWriterRunning {
		close(c.messageBuffer)
		c.isWriterRunning = false
	}
	c.writerMu.Unlock()
	c.writerWg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelConnCtx != nil {
		cancel := c.cancelConnCtx
		c.cancelConnCtx = nil
		cancel()
	}
	if c.wsConn == nil {
		return nil
	}
	err := c.wsConn.Close(statusCode, reason)
	c.wsConn = nil
	return err
}
