package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matrixise/amm-tracker/internal/coordinator"
)

const namespace = "amm_tracker"

// Metrics exposes refresh cycle outcomes to Prometheus. It implements
// coordinator.Observer.
type Metrics struct {
	registry *prometheus.Registry

	cyclesStarted *prometheus.CounterVec
	cyclesSettled prometheus.Counter
	cyclesFailed  prometheus.Counter
	staleResults  prometheus.Counter
	cycleDuration prometheus.Histogram
	lastSettled   prometheus.Gauge
	currentCycle  prometheus.Gauge
	tokensTracked *prometheus.GaugeVec

	mu        sync.Mutex
	lastCycle uint64
}

// New registers the tracker metrics plus Go and process collectors on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cyclesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_started_total",
			Help:      "Refresh cycles started, by trigger.",
		}, []string{"trigger"}),
		cyclesSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_settled_total",
			Help:      "Refresh cycles whose results were applied.",
		}),
		cyclesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_failed_total",
			Help:      "Refresh cycles that ended in a fetch failure.",
		}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Cycle results dropped because a newer cycle had started.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of settled refresh cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		lastSettled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_settled_timestamp_seconds",
			Help:      "Unix time of the last settled cycle.",
		}),
		currentCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_cycle",
			Help:      "Id of the most recently started cycle.",
		}),
		tokensTracked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokens_tracked",
			Help:      "Number of tokens in the last settled cycle, by section.",
		}, []string{"section"}),
	}

	m.registry.MustRegister(
		m.cyclesStarted,
		m.cyclesSettled,
		m.cyclesFailed,
		m.staleResults,
		m.cycleDuration,
		m.lastSettled,
		m.currentCycle,
		m.tokensTracked,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CycleStarted(cycle uint64, trigger coordinator.Trigger) {
	m.cyclesStarted.WithLabelValues(string(trigger)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if cycle > m.lastCycle {
		m.lastCycle = cycle
		m.currentCycle.Set(float64(cycle))
	}
}

func (m *Metrics) CycleSettled(snap coordinator.Snapshot, elapsed time.Duration) {
	m.cyclesSettled.Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
	m.lastSettled.Set(float64(snap.SettledAt.Unix()))
	m.tokensTracked.WithLabelValues("user").Set(float64(len(snap.Balances)))
	m.tokensTracked.WithLabelValues("pool").Set(float64(len(snap.Reserves)))
}

func (m *Metrics) CycleFailed(uint64, error) {
	m.cyclesFailed.Inc()
}

func (m *Metrics) CycleDiscarded(uint64) {
	m.staleResults.Inc()
}
