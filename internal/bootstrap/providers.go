package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	apphttp "gitlab.com/aventra/api/pulse-content-service/internal/adapters/http"
	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/logger"
	appnats "gitlab.com/aventra/api/pulse-content-service/internal/adapters/nats"
	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/postgres"
	appredis "gitlab.com/aventra/api/pulse-content-service/internal/adapters/redis"
	wsadapter "gitlab.com/aventra/api/pulse-content-service/internal/adapters/websocket"
	"gitlab.com/aventra/api/pulse-content-service/internal/application"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

// App aggregates everything Run needs. The struct and NewApp live here so
// Wire can construct it; Run is in app.go.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	apiRouter      *apphttp.Router
	wsHandler      *wsadapter.Handler
	dispatcher     *appnats.DispatcherAdapter
	presence       *application.PresenceRegistry
	pgRepo         *postgres.Repo
	redisClient    *redis.Client
}

// NewApp is the Wire constructor for App.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	apiRouter *apphttp.Router,
	wsHandler *wsadapter.Handler,
	dispatcher *appnats.DispatcherAdapter,
	presence *application.PresenceRegistry,
	pgRepo *postgres.Repo,
	redisClient *redis.Client,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServeMux:   mux,
		httpServer:     server,
		apiRouter:      apiRouter,
		wsHandler:      wsHandler,
		dispatcher:     dispatcher,
		presence:       presence,
		pgRepo:         pgRepo,
		redisClient:    redisClient,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		app.dispatcher.Stop()
	}
	return app, cleanup, nil
}

// InitialZapLoggerProvider provides a basic *zap.Logger for config
// initialization, before the structured application logger exists.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zl, err := zap.NewProduction()
	if err != nil {
		zl, err = zap.NewDevelopment()
		if err != nil {
			zl = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example: %v\n", err)
		}
	}
	cleanup := func() {
		if syncErr := zl.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zl, cleanup, nil
}

// ConfigProvider provides the application configuration.
func ConfigProvider(appCtx context.Context, zl *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zl)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider, cfgProvider.Get().App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides the HTTP server configured for
// graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	writeTimeout := 10 * time.Second
	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// RedisClientProvider provides a Redis client with the retry budget from
// configuration, and a cleanup that closes it. Startup does not fail when
// Redis is unreachable: the cache adapter degrades instead.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	redisCfg := cfgProvider.Get().Redis
	backoff := time.Duration(redisCfg.RetryBackoffMs) * time.Millisecond
	client := redis.NewClient(&redis.Options{
		Addr:            redisCfg.Address,
		Password:        redisCfg.Password,
		DB:              redisCfg.DB,
		MaxRetries:      redisCfg.MaxRetries,
		MinRetryBackoff: backoff,
		MaxRetryBackoff: backoff,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		appLogger.Warn(context.Background(), "Redis not reachable at startup; cache will serve misses until it recovers", "error", err.Error(), "address", redisCfg.Address)
	} else {
		appLogger.Info(context.Background(), "Connected to Redis", "address", redisCfg.Address)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	return client, cleanup, nil
}

// CacheStoreProvider provides the degraded-aware cache store.
func CacheStoreProvider(redisClient *redis.Client, cfgProvider config.Provider, appLogger domain.Logger) domain.CacheStore {
	return appredis.NewCacheAdapter(redisClient, cfgProvider, appLogger)
}

// PostgresRepoProvider provides the store-of-record repo and its cleanup.
func PostgresRepoProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*postgres.Repo, func(), error) {
	return postgres.NewRepo(ctx, cfgProvider, appLogger)
}

// UserRepositoryProvider provides the user repository.
func UserRepositoryProvider(repo *postgres.Repo) domain.UserRepository {
	return repo.Users()
}

// PostRepositoryProvider provides the post repository.
func PostRepositoryProvider(repo *postgres.Repo) domain.PostRepository {
	return repo.Posts()
}

// CommentRepositoryProvider provides the comment repository.
func CommentRepositoryProvider(repo *postgres.Repo) domain.CommentRepository {
	return repo.Comments()
}

// EventPublisherProvider provides the JetStream producer and its cleanup.
func EventPublisherProvider(cfgProvider config.Provider, appLogger domain.Logger) (domain.EventPublisher, func()) {
	return appnats.NewProducerAdapter(cfgProvider, appLogger)
}

// PresenceRegistryProvider provides the in-process presence registry.
func PresenceRegistryProvider() *application.PresenceRegistry {
	return application.NewPresenceRegistry()
}

// DispatcherAdapterProvider provides the notification dispatcher. It takes
// the registry through its domain port, satisfied via the wire.Bind in
// ProviderSet.
func DispatcherAdapterProvider(cfgProvider config.Provider, presence domain.PresenceRegistry, appLogger domain.Logger) *appnats.DispatcherAdapter {
	return appnats.NewDispatcherAdapter(cfgProvider, presence, appLogger)
}

// PostServiceProvider provides the post use-cases.
func PostServiceProvider(appLogger domain.Logger, cfgProvider config.Provider, posts domain.PostRepository, cache domain.CacheStore, publisher domain.EventPublisher) *application.PostService {
	return application.NewPostService(appLogger, cfgProvider, posts, cache, publisher)
}

// UserServiceProvider provides the user use-cases.
func UserServiceProvider(appLogger domain.Logger, cfgProvider config.Provider, users domain.UserRepository, cache domain.CacheStore, publisher domain.EventPublisher) *application.UserService {
	return application.NewUserService(appLogger, cfgProvider, users, cache, publisher)
}

// CommentServiceProvider provides the comment use-cases.
func CommentServiceProvider(appLogger domain.Logger, comments domain.CommentRepository, posts domain.PostRepository, cache domain.CacheStore, publisher domain.EventPublisher) *application.CommentService {
	return application.NewCommentService(appLogger, comments, posts, cache, publisher)
}

// APIRouterProvider provides the REST router.
func APIRouterProvider(appLogger domain.Logger, posts *application.PostService, users *application.UserService, comments *application.CommentService) *apphttp.Router {
	return apphttp.NewRouter(appLogger, posts, users, comments)
}

// WebsocketHandlerProvider provides the websocket upgrade handler.
func WebsocketHandlerProvider(appLogger domain.Logger, cfgProvider config.Provider, presence domain.PresenceRegistry) *wsadapter.Handler {
	return wsadapter.NewHandler(appLogger, cfgProvider, presence)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	RedisClientProvider,
	CacheStoreProvider,
	PostgresRepoProvider,
	UserRepositoryProvider,
	PostRepositoryProvider,
	CommentRepositoryProvider,
	EventPublisherProvider,

	PresenceRegistryProvider,
	wire.Bind(new(domain.PresenceRegistry), new(*application.PresenceRegistry)),
	DispatcherAdapterProvider,

	PostServiceProvider,
	UserServiceProvider,
	CommentServiceProvider,
	APIRouterProvider,
	WebsocketHandlerProvider,

	NewApp,
)
