package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the server notifier
var (
	// Poll loop metrics
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_ticks_total",
			Help: "Total number of notification ticks by outcome",
		},
		[]string{"outcome"},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifier_tick_duration_seconds",
			Help:    "Duration of a full fetch, match and dispatch cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Directory metrics
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_fetch_attempts_total",
			Help: "Total number of server list fetch attempts",
		},
		[]string{"status"},
	)

	FetchExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_fetch_exhausted_total",
			Help: "Total number of refreshes that used up every retry",
		},
	)

	DirectoryServers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notifier_directory_servers",
			Help: "Servers in the current snapshot per region",
		},
		[]string{"region"},
	)

	DirectoryPlayers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notifier_directory_players",
			Help: "Players in the current snapshot per region",
		},
		[]string{"region"},
	)

	// Subscription metrics
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_subscribers",
			Help: "Number of subscribers with at least one filter",
		},
	)

	Filters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_filters",
			Help: "Number of registered filters across all subscribers",
		},
	)

	// Matching and delivery metrics
	MatchEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_match_events_total",
			Help: "Total number of match events produced",
		},
	)

	NotifiedPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_notified_pairs",
			Help: "Size of the notified set after pruning",
		},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_deliveries_total",
			Help: "Total number of deliveries by status",
		},
		[]string{"status"},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_alerts_total",
			Help: "Total number of operational alerts raised",
		},
		[]string{"delivered"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)
