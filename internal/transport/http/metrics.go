package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors the transport layer feeds.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	WSConnections prometheus.Gauge
	ChatMessages  prometheus.Counter
	TradesCreated prometheus.Counter
}

// NewMetrics registers the transport collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecircle_http_requests_total",
			Help: "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tradecircle_ws_connections",
			Help: "Currently open websocket connections.",
		}),
		ChatMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "tradecircle_chat_messages_total",
			Help: "Chat messages accepted over any transport.",
		}),
		TradesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tradecircle_trades_created_total",
			Help: "Trades recorded.",
		}),
	}
}

// Middleware counts requests by route template so path params don't explode
// the label space.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
