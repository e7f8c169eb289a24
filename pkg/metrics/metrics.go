// Package metrics exposes Prometheus collectors for turns, tool invocations
// and follow-up sweeps.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "salesops"

const (
	MetricTurns            = "turns_total"
	MetricTurnDuration     = "turn_duration_seconds"
	MetricToolCalls        = "tool_calls_total"
	MetricToolDuration     = "tool_duration_seconds"
	MetricFollowUpsDue     = "followups_due"
	MetricFollowUpFailures = "followup_sweep_failures_total"
)

type Config struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Path    string `envconfig:"PATH" default:"/metrics"`
}

// Recorder owns its registry so tests and multiple servers in one process do
// not collide on the default one.
type Recorder struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	followUpsDue prometheus.Gauge
	sweepErrors  prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricTurns,
			Help:      "Conversation turns handled, by final status.",
		}, []string{"status"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricTurnDuration,
			Help:      "Wall time of a full turn.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"status"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricToolCalls,
			Help:      "Tool invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricToolDuration,
			Help:      "Wall time of a single tool invocation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		followUpsDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricFollowUpsDue,
			Help:      "Cards whose follow-up date has passed, as of the last sweep.",
		}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricFollowUpFailures,
			Help:      "Follow-up sweeps that could not read the card store.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.turns,
		r.turnDuration,
		r.toolCalls,
		r.toolDuration,
		r.followUpsDue,
		r.sweepErrors,
	)
	return r
}

func (r *Recorder) ObserveTool(tool, outcome string, elapsed time.Duration) {
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveTurn(status string, elapsed time.Duration) {
	r.turns.WithLabelValues(status).Inc()
	r.turnDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (r *Recorder) SetFollowUpsDue(n int) {
	r.followUpsDue.Set(float64(n))
}

func (r *Recorder) FollowUpSweepFailed() {
	r.sweepErrors.Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
