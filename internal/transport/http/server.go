package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/auth"
	"github.com/tradecircle/tradecircle/internal/config"
	"github.com/tradecircle/tradecircle/internal/core"
	"github.com/tradecircle/tradecircle/internal/store"
)

// NewServer builds the HTTP server: the REST API, the websocket endpoint and
// the metrics endpoint.
func NewServer(hub *core.Hub, st store.Store, authService *auth.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	router := NewRouter(hub, st, authService, metrics, logger)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires the gin engine. Split from NewServer so tests can drive it
// through httptest.
func NewRouter(hub *core.Hub, st store.Store, authService *auth.Service, metrics *Metrics, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(metrics.Middleware())

	authHandlers := NewAuthHandlers(authService, logger)
	groupHandlers := NewGroupHandlers(st, logger)
	joinHandlers := NewJoinHandlers(st, logger)
	tradeHandlers := NewTradeHandlers(st, metrics, logger)
	chatHandlers := NewChatHandlers(st, hub, metrics, logger)

	api := router.Group("/api")
	api.GET("/health", healthHandler)

	loginLimiter := newRateLimiter(loginRateLimit, loginRateWindow)
	api.POST("/login", loginLimiter.middleware(), authHandlers.Login)
	api.POST("/register", loginLimiter.middleware(), authHandlers.Register)

	protected := api.Group("")
	protected.Use(AuthMiddleware(authService, logger))
	{
		protected.GET("/groups", groupHandlers.ListGroups)
		protected.POST("/groups", groupHandlers.CreateGroup)
		protected.GET("/groups/search", groupHandlers.SearchGroups)
		protected.GET("/groups/:id", groupHandlers.GetGroupDetail)
		protected.POST("/groups/:id/join", joinHandlers.RequestJoin)
		protected.POST("/groups/:id/join/:reqid/approve", joinHandlers.ApproveRequest)
		protected.POST("/groups/:id/join/:reqid/reject", joinHandlers.RejectRequest)
		protected.GET("/groups/:id/chat", chatHandlers.History)
		protected.POST("/groups/:id/chat", chatHandlers.PostMessage)

		protected.GET("/trades", tradeHandlers.ListTrades)
		protected.POST("/trades", tradeHandlers.CreateTrade)
		protected.DELETE("/trades/:id", tradeHandlers.DeleteTrade)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, metrics, logger)))

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
}
