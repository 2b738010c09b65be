// README: Prometheus collectors for generative calls, video polling, voice frames and HTTP traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nest/internal/ai"
)

var (
	AICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nest_ai_calls_total",
			Help: "Generative calls by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nest_ai_call_duration_seconds",
			Help:    "Latency of generative calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"op"},
	)

	AIFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nest_ai_fallbacks_total",
			Help: "Cosmetic operations that degraded to a default value",
		},
		[]string{"op"},
	)

	VideoPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nest_video_polls_total",
		Help: "Video operation status polls",
	})

	VoiceFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nest_voice_frames_dropped_total",
		Help: "Microphone frames dropped because the outbound queue was full",
	})

	VoiceSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nest_voice_sessions_active",
		Help: "Open voice sessions",
	})

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nest_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveAI records one generative call that started at start.
func ObserveAI(op string, start time.Time, err error) {
	AICalls.WithLabelValues(op, ai.Classify(err).String()).Inc()
	AICallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func Fallback(op string) {
	AIFallbacks.WithLabelValues(op).Inc()
}
