package router

import (
	"net/http"

	"basegraph.app/chat/internal/http/handler"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/relay"
	"basegraph.app/chat/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	AdminAPIKey    string
	RateLimitRPS   float64
	RateLimitBurst int

	// RequireAuth rejects /api/v1 requests without a bearer token.
	RequireAuth bool

	// Gatherer backs /metrics; nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer

	// Relay backs /ws; nil leaves the endpoint unmounted.
	Relay *relay.Handler
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.Relay != nil {
		router.GET("/ws", cfg.Relay.ServeWS)
	}

	authHandler := handler.NewAuthHandler(services.Auth())
	AuthRouter(router.Group("/auth"), authHandler)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Bearer(services.Auth(), cfg.RequireAuth))
	v1.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdminAPIKey(cfg.AdminAPIKey))

		userHandler := handler.NewUserHandler(services.Presence(), services.Directory())
		UserRouter(v1.Group("/users"), admin, userHandler)

		projectHandler := handler.NewProjectHandler(services.Directory())
		ProjectRouter(v1.Group("/projects"), admin, projectHandler)

		messageHandler := handler.NewMessageHandler(services.Ledger())
		indexHandler := handler.NewIndexHandler(services.Index())
		MessageRouter(v1.Group("/messages"), messageHandler, indexHandler)
		TaskRouter(v1.Group("/tasks"), indexHandler)
		PollRouter(v1.Group("/polls"), indexHandler)
	}
}
