package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis failures by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_redis_errors_total",
		Help: "Total number of Redis errors by operation",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key prefix and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_cache_lookups_total",
		Help: "Cache lookups by key prefix and result",
	}, []string{"prefix", "result"})

	// DatabaseQueryLatency records query latency by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodgram_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// RecipesCreated counts successfully created recipes.
	RecipesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodgram_recipes_created_total",
		Help: "Total number of recipes created",
	})

	// ShoppingListDownloads counts rendered shopping lists by format.
	ShoppingListDownloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_shopping_list_downloads_total",
		Help: "Shopping list downloads by format",
	}, []string{"format"})

	// ShortLinkResolutions counts short-link lookups by result (found, not_found).
	ShortLinkResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodgram_short_link_resolutions_total",
		Help: "Short link resolutions by result",
	}, []string{"result"})

	// ShortCodeRetries counts short-code regenerations caused by collisions.
	ShortCodeRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodgram_short_code_retries_total",
		Help: "Short code regenerations caused by collisions",
	})

	// WebSocketConnections is the number of live notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "foodgram_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})

	// NotificationsDropped counts events dropped because a client buffer was full.
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodgram_notifications_dropped_total",
		Help: "Notification events dropped due to backpressure",
	})
)
