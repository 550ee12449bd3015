package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Kirana/storage"
)

const namespace = "kirana"

// ChatMetrics counts chat traffic. It satisfies assistant.Observer.
type ChatMetrics struct {
	messages *prometheus.CounterVec
	latency  prometheus.Histogram
	resets   prometheus.Counter
	failures *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	f := promauto.With(reg)
	return &ChatMetrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat messages handled, by the dialog state they left the session in.",
		}, []string{"state"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "message_duration_seconds",
			Help:      "Time to handle one chat message including persistence.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		resets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "resets_total",
			Help:      "Explicit conversation resets.",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "collaborator_failures_total",
			Help:      "Catalog or order lookups that failed and were answered with a fallback reply.",
		}, []string{"collaborator"}),
	}
}

func (m *ChatMetrics) MessageHandled(state storage.State, elapsed time.Duration) {
	m.messages.WithLabelValues(string(state)).Inc()
	m.latency.Observe(elapsed.Seconds())
}

func (m *ChatMetrics) SessionReset() {
	m.resets.Inc()
}

func (m *ChatMetrics) CollaboratorFailed(name string) {
	m.failures.WithLabelValues(name).Inc()
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
