package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	KindStoryboard = "storyboard"
	KindTransition = "transition"
	KindGateway    = "gateway"

	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cineprompt",
			Name:      "generations_total",
			Help:      "Total model generations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	GatewayResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cineprompt",
			Name:      "gateway_responses_total",
			Help:      "Gateway responses by HTTP status",
		},
		[]string{"status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cineprompt",
			Name:      "upstream_seconds",
			Help:      "Model call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"kind"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cineprompt",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		},
	)
)

// RecordGeneration records one finished model generation
func RecordGeneration(kind, outcome string, durationSec float64) {
	GenerationsTotal.WithLabelValues(kind, outcome).Inc()
	UpstreamDuration.WithLabelValues(kind).Observe(durationSec)
}

func RecordGatewayResponse(status int) {
	GatewayResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}
