package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat client metrics for production monitoring
var (
	// Session metrics
	ConnectionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexibot_connections_opened_total",
			Help: "Total number of chat connections opened",
		},
	)

	OperatorQuestions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexibot_operator_questions_total",
			Help: "Total number of questions asked by identified operators (testing flag set)",
		},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lexibot_session_duration_seconds",
			Help:    "Duration of one question/answer session in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
	)

	SessionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexibot_session_errors_total",
			Help: "Total number of sessions ending in error",
		},
		[]string{"kind"}, // kind: transport/protocol
	)

	// Frame metrics
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexibot_frames_received_total",
			Help: "Total number of inbound frames by type",
		},
		[]string{"type"},
	)

	FramesIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexibot_frames_ignored_total",
			Help: "Total number of inbound frames dropped as noise",
		},
	)

	AnswersSettled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexibot_answers_settled_total",
			Help: "Total number of answers settled with a canonical payload",
		},
	)

	// Rating metrics
	RatingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexibot_ratings_total",
			Help: "Total number of rating submissions",
		},
		[]string{"outcome"}, // outcome: confirmed/rolled_back
	)
)
