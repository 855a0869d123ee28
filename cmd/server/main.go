package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/common/otel"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/http/middleware"
	httprouter "basegraph.app/chat/internal/http/router"
	"basegraph.app/chat/internal/relay"
	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "chat server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.SnowflakeNode); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	stores, txRunner, closeDB, err := openStorage(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	unread, closeRedis, err := openUnreadCounter(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer closeRedis()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := relay.NewHub(relay.Config{
		SendBuffer:       cfg.Relay.SendBuffer,
		FilterByReceiver: cfg.Relay.FilterByReceiver,
		MaxFrameBytes:    cfg.Relay.MaxFrameBytes,
	}, relay.NewMetrics(registry))

	services := service.NewServices(stores, txRunner, unread, hub, cfg.Auth)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	wsHandler := relay.NewHandler(hub, services.Auth(), relay.HandlerConfig{
		RequireAuth:    cfg.Auth.Required,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
	})
	router := setupRouter(cfg, services, registry, wsHandler)
	// no WriteTimeout: relay sessions are long-lived and set their own write deadlines
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// hijacked relay connections are not tracked by Shutdown
	hub.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// openStorage picks the in-memory backend for memory:// DSNs and Postgres
// otherwise.
func openStorage(ctx context.Context, cfg config.Config) (service.StoreProvider, service.TxRunner, func(), error) {
	if cfg.InMemory() {
		slog.InfoContext(ctx, "using in-memory storage")
		mem := store.NewMemoryStores()
		return mem, service.NewMemoryTxRunner(mem), func() {}, nil
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	slog.InfoContext(ctx, "database connected")
	return store.NewStores(database.Conn()), service.NewTxRunner(database), database.Close, nil
}

func openUnreadCounter(ctx context.Context, cfg config.Config) (store.UnreadCounter, func(), error) {
	if !cfg.Redis.Enabled() {
		slog.InfoContext(ctx, "using in-memory unread counters")
		return store.NewMemoryUnreadCounter(), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected", "key", cfg.Redis.UnreadKey)

	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	return store.NewRedisUnreadCounter(redisClient, cfg.Redis.UnreadKey, slog.Default()), closeFn, nil
}

func setupRouter(cfg config.Config, services *service.Services, registry *prometheus.Registry, wsHandler *relay.Handler) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		AdminAPIKey:    cfg.AdminAPIKey,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		RequireAuth:    cfg.Auth.Required,
		Gatherer:       registry,
		Relay:          wsHandler,
	})

	return router
}

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██║     ███████║███████║   ██║
██║     ██╔══██║██╔══██║   ██║
╚██████╗██║  ██║██║  ██║   ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`
