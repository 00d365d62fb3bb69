// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmgraph_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmgraph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RecommendationDuration tracks how long an aggregate ranking takes.
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filmgraph_recommendation_duration_seconds",
			Help:    "Duration of recommendation queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// RecommendationCandidates tracks how many candidates a ranking produced.
	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filmgraph_recommendation_candidates",
			Help:    "Number of ranked candidates per recommendation query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// ReviewerSubmissionsTotal counts reviewer submissions by outcome.
	ReviewerSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmgraph_reviewer_submissions_total",
			Help: "Total number of reviewer submissions",
		},
		[]string{"outcome"},
	)

	// GraphVertices reports vertex counts by kind.
	GraphVertices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filmgraph_graph_vertices",
			Help: "Number of vertices in the review graph",
		},
		[]string{"kind"},
	)

	// GraphEdges reports the number of positive reviews in the graph.
	GraphEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmgraph_graph_edges",
			Help: "Number of edges in the review graph",
		},
	)

	// GraphLoadsTotal counts graph loads by source (snapshot or dataset).
	GraphLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmgraph_graph_loads_total",
			Help: "Total number of review graph loads",
		},
		[]string{"source"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordRecommendation records one aggregate ranking.
func RecordRecommendation(candidates int, elapsed time.Duration) {
	RecommendationDuration.Observe(elapsed.Seconds())
	RecommendationCandidates.Observe(float64(candidates))
}

// RecordSubmission records a reviewer submission outcome.
func RecordSubmission(outcome string) {
	ReviewerSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordGraphLoad counts a load and publishes the graph size.
func RecordGraphLoad(source string, s reviewgraph.Stats) {
	GraphLoadsTotal.WithLabelValues(source).Inc()
	SetGraphSize(s)
}

// SetGraphSize publishes the graph size.
func SetGraphSize(s reviewgraph.Stats) {
	GraphVertices.WithLabelValues(reviewgraph.KindReviewer.String()).Set(float64(s.Reviewers))
	GraphVertices.WithLabelValues(reviewgraph.KindItem.String()).Set(float64(s.Items))
	GraphEdges.Set(float64(s.Edges))
}
