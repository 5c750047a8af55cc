package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "PULSE"

// ServerConfig holds HTTP server configuration.
// Fields must be exported to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// PostgresConfig holds store-of-record configuration.
type PostgresConfig struct {
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

// RedisConfig holds cache store configuration. MaxRetries and the fixed
// retry backoff bound the reconnect policy; once the budget is exhausted the
// cache adapter degrades instead of retrying forever.
type RedisConfig struct {
	Address        string `mapstructure:"address"`
	Password       string `mapstructure:"password"` // Optional
	DB             int    `mapstructure:"db"`       // Optional
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryBackoffMs int    `mapstructure:"retry_backoff_ms"`
}

// NATSConfig holds broker configuration for the notification pipeline.
type NATSConfig struct {
	URL            string `mapstructure:"url"`
	StreamName     string `mapstructure:"stream_name"`
	Subject        string `mapstructure:"subject"`
	ConsumerGroup  string `mapstructure:"consumer_group"`
	AckWaitSeconds int    `mapstructure:"ack_wait_seconds"`
	MaxAckPending  int    `mapstructure:"max_ack_pending"`
}

// CacheConfig holds TTLs per resource class. List/pagination snapshots stay
// shorter-lived than single-entity lookups.
type CacheConfig struct {
	ListTTLSeconds   int `mapstructure:"list_ttl_seconds"`
	EntityTTLSeconds int `mapstructure:"entity_ttl_seconds"`
}

// LogConfig holds logging-related configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	ServiceName                string `mapstructure:"service_name"`
	Version                    string `mapstructure:"version"`
	ShutdownTimeoutSeconds     int    `mapstructure:"shutdown_timeout_seconds"`
	PingIntervalSeconds        int    `mapstructure:"ping_interval_seconds"`
	PongWaitSeconds            int    `mapstructure:"pong_wait_seconds"`
	WriteTimeoutSeconds        int    `mapstructure:"write_timeout_seconds"`
	WebsocketMessageBufferSize int    `mapstructure:"websocket_message_buffer_size"`
}

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
	App      AppConfig      `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// viperProvider implements the Provider interface using Viper. The config
// pointer is swapped atomically: hot reload stores from the SIGHUP goroutine
// and the fsnotify callback while Get reads from request paths.
type viperProvider struct {
	config atomic.Pointer[Config]
	// Using zap.Logger directly for config internal logging, not
	// domain.Logger, to avoid a circular dependency during bootstrap.
	logger *zap.Logger
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("app.service_name", "pulse-content-service")
	v.SetDefault("app.shutdown_timeout_seconds", 30)
	v.SetDefault("app.ping_interval_seconds", 30)
	v.SetDefault("app.pong_wait_seconds", 75)
	v.SetDefault("app.write_timeout_seconds", 10)
	v.SetDefault("app.websocket_message_buffer_size", 64)
	v.SetDefault("redis.max_retries", 5)
	v.SetDefault("redis.retry_backoff_ms", 3000)
	v.SetDefault("nats.stream_name", "NOTIFICATIONS")
	v.SetDefault("nats.subject", "notifications.push")
	v.SetDefault("nats.consumer_group", "notification-group")
	v.SetDefault("nats.ack_wait_seconds", 30)
	v.SetDefault("nats.max_ack_pending", 256)
	v.SetDefault("cache.list_ttl_seconds", 60)
	v.SetDefault("cache.entity_ttl_seconds", 120)
	v.SetDefault("postgres.schema", "pulse")
}

// NewViperProvider creates and initializes a new configuration provider using
// Viper. It loads configuration from file and environment variables and sets
// up hot-reloading via SIGHUP and file watching. appCtx is the application
// lifecycle context used to shut down the reload goroutine.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	cfg := &Config{}
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(getEnv("PULSE_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("PULSE_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // server.http_port -> PULSE_SERVER_HTTP_PORT

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	p := &viperProvider{
		logger: logger,
	}
	p.config.Store(cfg)

	// SIGHUP re-reads the config file without a restart.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				newCfg := &Config{}
				if err := v.Unmarshal(newCfg); err != nil {
					p.logger.Error("Failed to unmarshal re-read config on SIGHUP", zap.Error(err))
				} else {
					p.config.Store(newCfg)
					p.logger.Info("Configuration reloaded successfully via SIGHUP")
				}
			case <-appCtx.Done():
				p.logger.Info("Config reload goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in OnConfigChange callback",
					zap.String("event_name", e.Name),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			p.logger.Error("Failed to unmarshal config on file change event", zap.Error(err))
		} else {
			p.config.Store(newCfg)
			p.logger.Info("Configuration reloaded successfully via file change event")
		}
	})

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))

	return p, nil
}

// Get returns the current configuration snapshot.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
