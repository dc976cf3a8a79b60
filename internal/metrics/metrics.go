// Package metrics collects per-run counters and latencies with a private
// Prometheus registry and exports them as a node-exporter textfile next to
// the run's artifacts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Iron-Ham/crewpm/internal/ai"
	"github.com/Iron-Ham/crewpm/internal/event"
)

const namespace = "crewpm"

// Outcome label values.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics is the collector set for one run. It implements ai.CallObserver.
type Metrics struct {
	registry *prometheus.Registry

	// generatorCalls counts generator calls.
	// Labels: purpose, outcome (ok, error)
	generatorCalls *prometheus.CounterVec

	// generatorLatency measures generator call latency in seconds.
	// Labels: purpose
	generatorLatency *prometheus.HistogramVec

	// generatorChars counts prompt and reply characters.
	// Labels: purpose, direction (prompt, reply)
	generatorChars *prometheus.CounterVec

	// verdicts counts judged attempts.
	// Labels: verdict (accepted, rejected), ambiguous (true, false)
	verdicts *prometheus.CounterVec

	phaseAttempts   prometheus.Histogram
	phasesAccepted  prometheus.Counter
	phaseRetries    prometheus.Counter
	plansRejected   prometheus.Counter
	teamsFormed     prometheus.Counter
	runDuration     prometheus.Gauge
	runFailures     *prometheus.CounterVec
	planPhaseCount  prometheus.Gauge
	droppedLines    prometheus.Counter
	synthesisLength prometheus.Gauge
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		generatorCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "calls_total",
			Help:      "Generator calls by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		generatorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "latency_seconds",
			Help:      "Generator call latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 180},
		}, []string{"purpose"}),
		generatorChars: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "chars_total",
			Help:      "Characters sent to and received from the generator",
		}, []string{"purpose", "direction"}),
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "verdicts_total",
			Help:      "Judged attempts by verdict",
		}, []string{"verdict", "ambiguous"}),
		phaseAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "attempts",
			Help:      "Attempts needed to accept a phase",
			Buckets:   []float64{1, 2, 3, 4, 5, 7, 10},
		}),
		phasesAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "accepted_total",
			Help:      "Phases accepted",
		}),
		phaseRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "retries_total",
			Help:      "Rejected attempts that were retried",
		}),
		plansRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "rejected_total",
			Help:      "Generated plans rejected or kept with a warning",
		}),
		planPhaseCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "phases",
			Help:      "Phases in the accepted plan",
		}),
		droppedLines: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "dropped_lines_total",
			Help:      "Malformed plan lines ignored by the parser",
		}),
		teamsFormed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "team",
			Name:      "formed_total",
			Help:      "Teams formed",
		}),
		runDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of the completed run",
		}),
		runFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "failures_total",
			Help:      "Run failures by stage",
		}, []string{"stage"}),
		synthesisLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "synthesis",
			Name:      "chars",
			Help:      "Length of the final deliverable in characters",
		}),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCall implements ai.CallObserver.
func (m *Metrics) ObserveCall(purpose ai.Purpose, d time.Duration, promptChars, replyChars int, err error) {
	p := string(purpose)
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.generatorCalls.WithLabelValues(p, outcome).Inc()
	m.generatorLatency.WithLabelValues(p).Observe(d.Seconds())
	m.generatorChars.WithLabelValues(p, "prompt").Add(float64(promptChars))
	m.generatorChars.WithLabelValues(p, "reply").Add(float64(replyChars))
}

// Subscribe feeds m from run events on bus and returns the subscription ID.
func (m *Metrics) Subscribe(bus *event.Bus) string {
	return bus.SubscribeAll(m.handle)
}

func (m *Metrics) handle(e event.Event) {
	switch ev := e.(type) {
	case event.PlanGeneratedEvent:
		m.planPhaseCount.Set(float64(len(ev.Phases)))
		m.droppedLines.Add(float64(ev.Dropped))
	case event.PlanRejectedEvent:
		m.plansRejected.Inc()
	case event.TeamFormedEvent:
		m.teamsFormed.Inc()
	case event.VerdictRenderedEvent:
		verdict := "rejected"
		if ev.Accepted {
			verdict = "accepted"
		}
		ambiguous := "false"
		if ev.Ambiguous {
			ambiguous = "true"
		}
		m.verdicts.WithLabelValues(verdict, ambiguous).Inc()
	case event.PhaseRetryingEvent:
		m.phaseRetries.Inc()
	case event.PhaseAcceptedEvent:
		m.phasesAccepted.Inc()
		m.phaseAttempts.Observe(float64(ev.Attempts))
	case event.SynthesisCompletedEvent:
		m.synthesisLength.Set(float64(len([]rune(ev.Content))))
	case event.RunCompletedEvent:
		m.runDuration.Set(ev.Duration.Seconds())
	case event.RunFailedEvent:
		m.runFailures.WithLabelValues(ev.Stage).Inc()
	}
}

// WriteTextfile writes the current values in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
