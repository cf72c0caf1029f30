package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives watcher events. Registry implements it; NoopRecorder
// discards everything.
type Recorder interface {
	ObserveTick(chain string, d time.Duration, err error)
	IncOrderOutcome(chain, outcome string)
	IncIndexerError(chain string)
	IncConfirmation(chain, result string)
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveTick(string, time.Duration, error) {}
func (NoopRecorder) IncOrderOutcome(string, string)           {}
func (NoopRecorder) IncIndexerError(string)                   {}
func (NoopRecorder) IncConfirmation(string, string)           {}

// Registry owns a private prometheus registry so tests can build as many as
// they like without colliding on the default one.
type Registry struct {
	registry            *prometheus.Registry
	ticksTotal          *prometheus.CounterVec
	tickDuration        *prometheus.HistogramVec
	orderOutcomesTotal  *prometheus.CounterVec
	indexerErrorsTotal  *prometheus.CounterVec
	confirmationsTotal  *prometheus.CounterVec
	addressResolveTotal *prometheus.CounterVec
}

func NewRegistry() *Registry {
	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "watcher",
		Name:      "ticks_total",
		Help:      "Watch cycles run per chain",
	}, []string{"chain", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainwatch",
		Subsystem: "watcher",
		Name:      "tick_duration_seconds",
		Help:      "Duration of one watch cycle",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain"})

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "watcher",
		Name:      "order_outcomes_total",
		Help:      "Per-order watch outcomes",
	}, []string{"chain", "outcome"})

	indexerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "indexer",
		Name:      "errors_total",
		Help:      "Failed address history lookups",
	}, []string{"chain"})

	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "sink",
		Name:      "confirmations_total",
		Help:      "Confirmation deliveries by result",
	}, []string{"chain", "result"})

	resolve := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainwatch",
		Subsystem: "address",
		Name:      "resolutions_total",
		Help:      "Address to script resolutions by result",
	}, []string{"chain", "result"})

	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ticks, duration, outcomes, indexerErrors, confirmations, resolve,
	)

	return &Registry{
		registry:            r,
		ticksTotal:          ticks,
		tickDuration:        duration,
		orderOutcomesTotal:  outcomes,
		indexerErrorsTotal:  indexerErrors,
		confirmationsTotal:  confirmations,
		addressResolveTotal: resolve,
	}
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) ObserveTick(chain string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ticksTotal.WithLabelValues(chain, result).Inc()
	m.tickDuration.WithLabelValues(chain).Observe(d.Seconds())
}

func (m *Registry) IncOrderOutcome(chain, outcome string) {
	m.orderOutcomesTotal.WithLabelValues(chain, outcome).Inc()
}

func (m *Registry) IncIndexerError(chain string) {
	m.indexerErrorsTotal.WithLabelValues(chain).Inc()
}

func (m *Registry) IncConfirmation(chain, result string) {
	m.confirmationsTotal.WithLabelValues(chain, result).Inc()
}

func (m *Registry) IncAddressResolution(chain, result string) {
	m.addressResolveTotal.WithLabelValues(chain, result).Inc()
}
