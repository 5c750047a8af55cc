package config

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestGetObservesHotSwappedConfig(t *testing.T) {
	p := &viperProvider{logger: zap.NewNop()}
	p.config.Store(&Config{Server: ServerConfig{HTTPPort: 8080}})

	if got := p.Get().Server.HTTPPort; got != 8080 {
		t.Fatalf("HTTPPort = %d, want 8080", got)
	}

	p.config.Store(&Config{Server: ServerConfig{HTTPPort: 9090}})
	if got := p.Get().Server.HTTPPort; got != 9090 {
		t.Fatalf("HTTPPort after swap = %d, want 9090", got)
	}
}

func TestGetDuringConcurrentReloads(t *testing.T) {
	p := &viperProvider{logger: zap.NewNop()}
	p.config.Store(&Config{Server: ServerConfig{HTTPPort: 1}})

	stop := make(chan struct{})
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		port := 2
		for {
			select {
			case <-stop:
				return
			default:
				p.config.Store(&Config{Server: ServerConfig{HTTPPort: port}})
				port++
			}
		}
	}()

	var readers sync.WaitGroup
	for g := 0; g < 4; g++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 10000; i++ {
				cfg := p.Get()
				if cfg == nil || cfg.Server.HTTPPort < 1 {
					t.Error("Get returned an inconsistent config snapshot")
					return
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	writer.Wait()
}
