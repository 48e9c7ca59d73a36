package api

import (
	"github.com/gin-gonic/gin"
	"github.com/serverwatch/notifier/internal/middleware"
	"github.com/serverwatch/notifier/pkg/config"
)

func SetupRouter(
	filterHandler *FilterHandler,
	serverHandler *ServerHandler,
	healthHandler *HealthHandler,
	prometheusHandler *PrometheusHandler,
	matchStream *MatchStream,
	tokenValidator *middleware.TokenValidator,
	cfg *config.Config,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (in order)
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimiter))

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/metrics", healthHandler.MetricsCheck)

	// Prometheus metrics endpoint (no auth required for scraping)
	router.GET("/prometheus", prometheusHandler.MetricsEndpoint)

	api := router.Group("/api")
	api.Use(middleware.ServiceAuthMiddleware(tokenValidator))
	{
		api.GET("/catalog", filterHandler.GetCatalog)
		api.GET("/servers", serverHandler.ListServers)
		api.GET("/status", serverHandler.GetStatus)
		api.GET("/events", serverHandler.ListEvents)

		subscribers := api.Group("/subscribers/:id/filters")
		subscribers.Use(middleware.RateLimitMiddleware(middleware.CommandRateLimiter))
		{
			subscribers.POST("", filterHandler.AddFilter)
			subscribers.GET("", filterHandler.ListFilters)
			subscribers.DELETE("", filterHandler.ClearFilters)
			subscribers.DELETE("/:index", filterHandler.RemoveFilter)
		}
	}

	// Match stream for delivery clients
	ws := router.Group("/ws")
	ws.Use(middleware.ServiceAuthMiddleware(tokenValidator))
	ws.GET("/matches", matchStream.HandleConnection)

	return router
}
