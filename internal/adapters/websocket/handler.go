package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/metrics"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/contextkeys"
)

// Handler upgrades HTTP requests to WebSocket connections and binds them to
// the presence registry for the lifetime of the socket.
type Handler struct {
	logger      domain.Logger
	cfgProvider config.Provider
	presence    domain.PresenceRegistry
}

// NewHandler creates a WebSocket Handler.
func NewHandler(logger domain.Logger, cfgProvider config.Provider, presence domain.PresenceRegistry) *Handler {
	if logger == nil || cfgProvider == nil || presence == nil {
		panic("websocket.NewHandler: all dependencies are required")
	}
	return &Handler{
		logger:      logger,
		cfgProvider: cfgProvider,
		presence:    presence,
	}
}

// ServeHTTP handles the upgrade request. The client identifies itself with
// the user_id query parameter; the identity is trusted as-is, the same way
// the HTTP surface trusts its caller header.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.logger.Warn(r.Context(), "WebSocket upgrade rejected: missing user_id", "remote_addr", r.RemoteAddr)
		domain.NewErrorResponse(domain.ErrCodeBadRequest, "Missing user_id query parameter.", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	connID := uuid.NewString()
	connCtx := context.WithValue(r.Context(), contextkeys.UserIDKey, userID)
	connCtx = context.WithValue(connCtx, contextkeys.ConnectionIDKey, connID)
	connCtx, cancelConnCtx := context.WithCancel(connCtx)

	var wrappedConn *Connection
	opts := websocket.AcceptOptions{
		Subprotocols: []string{"json.v1"},
		OnPongReceived: func(ctx context.Context, pongPayload []byte) {
			if wrappedConn != nil {
				wrappedConn.UpdateLastPongTime()
			}
		},
	}

	c, err := websocket.Accept(w, r, &opts)
	if err != nil {
		// The hijack has already happened or failed; no HTTP response possible.
		h.logger.Error(r.Context(), "WebSocket upgrade failed", "error", err.Error(), "user_id", userID)
		cancelConnCtx()
		return
	}

	wrappedConn = NewConnection(connCtx, cancelConnCtx, c, connID, userID, r.RemoteAddr, h.logger, h.cfgProvider)
	h.logger.Info(connCtx, "WebSocket connection established",
		"remote_addr", wrappedConn.RemoteAddr(),
		"subprotocol", c.Subprotocol())

	// Last-writer-wins: an older connection for this user is silently
	// superseded in the registry; its read loop notices on its own.
	h.presence.Register(userID, wrappedConn)
	metrics.IncrementActiveConnections()

	go h.manageConnection(connCtx, wrappedConn)
}

// manageConnection owns the connection lifecycle: the ready frame, the ping
// loop and the read loop. On any exit path the connection is removed from
// the registry and closed.
func (h *Handler) manageConnection(connCtx context.Context, conn *Connection) {
	defer func() {
		h.presence.Unregister(conn.ID())
		metrics.DecrementActiveConnections()
		_ = conn.Close(websocket.StatusNormalClosure, "connection ended")
		h.logger.Info(connCtx, "WebSocket connection closed", "remote_addr", conn.RemoteAddr())
	}()

	if err := conn.WriteJSON(domain.NewReadyMessage()); err != nil {
		h.logger.Error(connCtx, "Failed to send 'ready' frame", "error", err.Error())
		return
	}

	appCfg := h.cfgProvider.Get().App
	pingInterval := time.Duration(appCfg.PingIntervalSeconds) * time.Second
	pongWait := time.Duration(appCfg.PongWaitSeconds) * time.Second

	if pingInterval > 0 {
		pinger := time.NewTicker(pingInterval)
		go func() {
			defer pinger.Stop()
			for {
				select {
				case <-pinger.C:
					if err := conn.Ping(connCtx); err != nil {
						h.logger.Warn(connCtx, "Ping failed, closing connection", "error", err.Error())
						_ = conn.Close(websocket.StatusAbnormalClosure, "ping failure")
						return
					}
					if pongWait > 0 && time.Since(conn.LastPongTime()) > pongWait {
						h.logger.Warn(connCtx, "Pong timeout, closing connection", "last_pong", conn.LastPongTime())
						_ = conn.Close(websocket.StatusPolicyViolation, "pong timeout")
						return
					}
				case <-connCtx.Done():
					return
				}
			}
		}()
	}

	// The protocol is push-only; the read loop exists to observe pongs,
	// client closes and protocol violations.
	for {
		_, _, err := conn.ReadMessage(connCtx)
		if err == nil {
			// Inbound data frames are not part of the protocol; ignore them.
			continue
		}

		closeStatus := websocket.CloseStatus(err)
		switch {
		case closeStatus == websocket.StatusNormalClosure || closeStatus == domain.StatusGoingAway:
			h.logger.Info(connCtx, "WebSocket closed by peer", "status_code", closeStatus)
		case errors.Is(err, context.Canceled) || connCtx.Err() != nil:
			h.logger.Info(connCtx, "WebSocket connection context canceled")
		case closeStatus == -1 && (strings.Contains(strings.ToLower(err.Error()), "eof") || strings.Contains(strings.ToLower(err.Error()), "closed")):
			h.logger.Info(connCtx, "WebSocket peer disconnected abruptly", "error", err.Error())
		default:
			h.logger.Error(connCtx, "Error reading from WebSocket", "error", err.Error(), "close_status_code", closeStatus)
		}
		return
	}
}
