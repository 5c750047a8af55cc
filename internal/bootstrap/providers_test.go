package bootstrap

import (
	"context"
	"testing"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

type stubLogger struct{}

func (stubLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (stubLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (stubLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (stubLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (stubLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l stubLogger) With(fields ...any) domain.Logger { return l }

type stubProvider struct{ cfg *config.Config }

func (p *stubProvider) Get() *config.Config { return p.cfg }

// stubPresence is any non-default implementation of the presence port.
type stubPresence struct{}

func (stubPresence) Register(userID string, conn domain.ManagedConnection) {}
func (stubPresence) Unregister(connectionID string)                        {}
func (stubPresence) Lookup(userID string) (domain.ManagedConnection, bool) {
	return nil, false
}

// The dispatcher and the websocket handler depend on the presence port, not
// on the concrete registry; this pins the provider signatures to the
// interface the ProviderSet binds.
func TestPresenceConsumersTakeTheDomainPort(t *testing.T) {
	provider := &stubProvider{cfg: &config.Config{}}

	if d := DispatcherAdapterProvider(provider, stubPresence{}, stubLogger{}); d == nil {
		t.Fatal("DispatcherAdapterProvider returned nil")
	}
	if h := WebsocketHandlerProvider(stubLogger{}, provider, stubPresence{}); h == nil {
		t.Fatal("WebsocketHandlerProvider returned nil")
	}
}
