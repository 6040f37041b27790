package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// Sync results
	ResultSuccess = "success"
	ResultFailure = "failure"

	// Per-activity sync outcomes
	OutcomeSaved   = "saved"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"

	// Webhook notification outcomes
	WebhookStored       = "stored"
	WebhookDuplicate    = "duplicate"
	WebhookIgnored      = "ignored"
	WebhookUserNotFound = "user_not_found"
	WebhookNoToken      = "no_token"
	WebhookError        = "error"

	// HTTP endpoints
	EndpointOAuthStart    = "oauth_start"
	EndpointOAuthCallback = "oauth_callback"
	EndpointWebhook       = "webhook_callback"
	EndpointSync          = "sync"
	EndpointStandings     = "standings"
	EndpointHealth        = "health"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "status_code"},
	)
)

// Sync Metrics
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by result",
		},
		[]string{"result"},
	)

	ActivitiesSyncedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activities_synced_total",
			Help: "Total number of activities processed by outcome",
		},
		[]string{"outcome"},
	)

	SyncBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_batch_size",
			Help:    "Number of activities fetched per sync run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)
)

// Webhook Metrics
var (
	WebhookEventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_processed_total",
			Help: "Total number of webhook notifications by outcome",
		},
		[]string{"outcome"},
	)
)

// Aggregation Metrics
var (
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "points_aggregation_duration_seconds",
			Help:    "Time spent recalculating event points",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// Storage Metrics
var (
	TrackLogsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "track_logs_stored",
			Help: "Number of track logs currently stored",
		},
	)

	ConnectedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connected_users",
			Help: "Number of users with an active Strava connection",
		},
	)
)
