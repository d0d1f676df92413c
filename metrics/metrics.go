package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whale_alert"

// Cycle phases reported by CyclePhase.
const (
	PhaseIdle          = 0
	PhaseFetching      = 1
	PhaseIngesting     = 2
	PhaseDispatching   = 3
	PhaseCheckpointing = 4
)

var (
	// Feed
	FeedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "requests_total",
		Help:      "Feed requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	FeedRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "request_duration_seconds",
		Help:      "Feed request duration, limiter wait excluded",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"endpoint"})

	FeedTransactionsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "transactions_fetched_total",
		Help:      "Transactions returned by the feed",
	}, []string{"blockchain"})

	// Poller
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "cycles_total",
		Help:      "Polling cycles by result (success, partial, failed, skipped)",
	}, []string{"result"})

	CycleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "cycle_duration_seconds",
		Help:      "Polling cycle duration",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 240},
	})

	CyclePhase = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "phase",
		Help:      "Current cycle phase: 0 idle, 1 fetching, 2 ingesting, 3 dispatching, 4 checkpointing",
	})

	CheckpointTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "checkpoint_timestamp_seconds",
		Help:      "Unix time of the last processed checkpoint",
	})

	BlockchainErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "blockchain_errors_total",
		Help:      "Per blockchain fetch failures",
	}, []string{"blockchain"})

	// Ingestor
	TransactionsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "transactions_total",
		Help:      "Ingested transactions by outcome (new, duplicate)",
	}, []string{"outcome"})

	IngestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "errors_total",
		Help:      "Ingest batches that failed after retries",
	})

	// Notifier
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifier",
		Name:      "notifications_total",
		Help:      "Notifications produced by channel",
	}, []string{"channel"})

	DispatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifier",
		Name:      "errors_total",
		Help:      "Dispatch failures by channel",
	}, []string{"channel"})

	// Emitter
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "emitter",
		Name:      "events_total",
		Help:      "Whale transaction events published by outcome",
	}, []string{"outcome"})
)
