package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "gitlab.com/aventra/api/pulse-content-service/internal/adapters/http"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/safego"
)

// NOTE: The App struct and NewApp are defined in providers.go for Wire.
// This file only holds methods on App.

// Run registers routes, starts the notification dispatcher and the HTTP
// server, and blocks until shutdown completes.
func (a *App) Run(ctx context.Context) error {
	appCfg := a.configProvider.Get().App
	a.logger.Info(ctx, "Starting application", "service_name", appCfg.ServiceName, "version", appCfg.Version)

	healthHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.Handle("GET /health", apphttp.RequestIDMiddleware(healthHandler))

	a.httpServeMux.Handle("GET /ready", apphttp.RequestIDMiddleware(http.HandlerFunc(a.readiness)))
	a.httpServeMux.Handle("GET /metrics", apphttp.RequestIDMiddleware(promhttp.Handler()))

	a.apiRouter.Register(a.httpServeMux)
	a.httpServeMux.Handle("GET /ws", apphttp.RequestIDMiddleware(a.wsHandler))

	if err := a.dispatcher.Start(ctx); err != nil {
		// The service still serves reads and writes; invalidation and
		// persistence do not depend on the dispatcher.
		a.logger.Error(ctx, "Failed to start notification dispatcher", "error", err.Error())
	} else {
		a.logger.Info(ctx, "Notification dispatcher started")
	}

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if appCfg.ShutdownTimeoutSeconds > 0 {
			shutdownTimeout = time.Duration(appCfg.ShutdownTimeoutSeconds) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop consuming before tearing down connections so no event is
		// pulled that can no longer be delivered or acked.
		a.dispatcher.Stop()
		a.closeAllConnections()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", a.configProvider.Get().Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}

// readiness reports the health of the hard dependencies. The cache is
// deliberately excluded: a degraded cache keeps the service fully usable.
func (a *App) readiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ready := true
	deps := make(map[string]string)

	if err := a.pgRepo.Ping(r.Context()); err == nil {
		deps["postgres"] = "connected"
	} else {
		deps["postgres"] = "disconnected"
		ready = false
		a.logger.Warn(r.Context(), "Readiness check failed: postgres ping failed", "error", err.Error())
	}

	if err := a.redisClient.Ping(r.Context()).Err(); err == nil {
		deps["redis"] = "connected"
	} else {
		deps["redis"] = "degraded"
	}

	if a.dispatcher.Running() {
		deps["nats"] = "consuming"
	} else {
		deps["nats"] = "stopped"
		ready = false
	}

	response := struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}{Dependencies: deps}

	if ready {
		response.Status = "READY"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "NOT_READY"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err.Error())
	}
}

// closeAllConnections tells every live client the server is going away.
func (a *App) closeAllConnections() {
	conns := a.presence.Connections()
	if len(conns) == 0 {
		return
	}
	a.logger.Info(context.Background(), "Closing all WebSocket connections gracefully...", "count", len(conns))
	for _, conn := range conns {
		if err := conn.Close(domain.StatusGoingAway, "Server is shutting down"); err != nil {
			a.logger.Debug(context.Background(), "Error closing WebSocket connection during shutdown", "connection_id", conn.ID(), "error", err.Error())
		}
	}
}
