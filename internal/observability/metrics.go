package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotely_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotely_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// VotesTotal counts vote operations by outcome.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotely_votes_total",
		Help: "Total vote casts and retractions by outcome",
	}, []string{"outcome"})

	// QuoteListQueries counts list queries by execution path and cache result.
	QuoteListQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotely_quote_list_queries_total",
		Help: "Total quote list queries by plan and cache result",
	}, []string{"plan", "cache"})
)

// Vote outcomes recorded on VotesTotal.
const (
	VoteCast      = "cast"
	VoteRetracted = "retracted"
	VoteNotFound  = "not_found"
	VoteConflict  = "conflict"
	VoteFailed    = "error"
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
