package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives search events; the solver never depends on prometheus directly
type Recorder interface {
	Iteration(neighbour string, accepted bool)
	Improved(unassigned int, total float64)
	RunFinished(outcome string, seconds float64)
}

// Nop discards every event
type Nop struct{}

func (Nop) Iteration(string, bool) {}
func (Nop) Improved(int, float64) {}
func (Nop) RunFinished(string, float64) {}

// Prometheus records search events as prometheus metrics
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	iterations *prometheus.CounterVec
	improved   prometheus.Counter
	unassigned prometheus.Gauge
	total      prometheus.Gauge
	runs       *prometheus.CounterVec
	duration   prometheus.Histogram
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates a collector registering on reg (prometheus.DefaultRegisterer if nil)
// under namespace ("teams" if empty). Metrics are registered on first use.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "teams"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.iterations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "search",
			Name:      "iterations_total",
			Help:      "Local search iterations by neighbourhood and outcome.",
		}, []string{"neighbour", "result"})
		p.improved = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "search",
			Name:      "best_improvements_total",
			Help:      "Times a worker found a new best assignment.",
		})
		p.unassigned = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "search",
			Name:      "best_unassigned",
			Help:      "Unassigned persons of the latest best assignment.",
		})
		p.total = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "search",
			Name:      "best_total_value",
			Help:      "Weighted objective of the latest best assignment.",
		})
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "search",
			Name:      "runs_total",
			Help:      "Finished searches by outcome (complete, partial, failed).",
		}, []string{"outcome"})
		p.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "search",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a search in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~80s
		})

		p.reg.MustRegister(p.iterations, p.improved, p.unassigned, p.total, p.runs, p.duration)
	})
}

func (p *Prometheus) Iteration(neighbour string, accepted bool) {
	p.ensureRegistered()
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	p.iterations.WithLabelValues(neighbour, result).Inc()
}

func (p *Prometheus) Improved(unassigned int, total float64) {
	p.ensureRegistered()
	p.improved.Inc()
	p.unassigned.Set(float64(unassigned))
	p.total.Set(total)
}

func (p *Prometheus) RunFinished(outcome string, seconds float64) {
	p.ensureRegistered()
	p.runs.WithLabelValues(outcome).Inc()
	p.duration.Observe(seconds)
}
