// Package metrics exposes the Prometheus counters and gauges the DLOB
// engine records as it processes account updates, modeled after the
// Collector pattern in VictorVVedtion-perp-dex's metrics/prometheus.go
// (singleton collector, namespace/subsystem-scoped vectors, MustRegister on
// construction, small Record* helpers).
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds every metric the DLOB engine records. Error counters are
// named after the dlob.ErrKind values they track (spec.md §7 "Error
// Taxonomy") so a dashboard panel maps directly onto that taxonomy.
type Collector struct {
	ErrorsTotal *prometheus.CounterVec

	UpdatesApplied      *prometheus.CounterVec
	ApplyLatency        *prometheus.HistogramVec
	QueueDepth          *prometheus.GaugeVec
	OrdersActive        *prometheus.GaugeVec
	ReclassifyTotal     *prometheus.CounterVec
	SubscriptionsActive prometheus.Gauge
	SlotLag             *prometheus.GaugeVec
}

// GetCollector returns the process-wide Collector, constructing and
// registering it on first use.
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{}

	c.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dlob",
			Subsystem: "errors",
			Name:      "total",
			Help:      "Total errors by kind, per spec.md's error taxonomy",
		},
		[]string{"kind"},
	)

	c.UpdatesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dlob",
			Subsystem: "notifier",
			Name:      "updates_applied_total",
			Help:      "Account updates applied to the in-memory book",
		},
		[]string{"market_id", "update_type"},
	)

	c.ApplyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dlob",
			Subsystem: "notifier",
			Name:      "apply_latency_ms",
			Help:      "Time to apply one account update to the book",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		},
		[]string{"update_type"},
	)

	c.QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dlob",
			Subsystem: "notifier",
			Name:      "queue_depth",
			Help:      "Pending updates waiting for the notifier goroutine",
		},
		[]string{"source"},
	)

	c.OrdersActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dlob",
			Subsystem: "book",
			Name:      "orders_active",
			Help:      "Resident orders per market and side",
		},
		[]string{"market_id", "side"},
	)

	c.ReclassifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dlob",
			Subsystem: "book",
			Name:      "reclassify_total",
			Help:      "Node reclassifications performed on slot tick",
		},
		[]string{"market_id", "from_kind", "to_kind"},
	)

	c.SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dlob",
			Subsystem: "transport",
			Name:      "subscriptions_active",
			Help:      "Active account/program subscriptions",
		},
	)

	c.SlotLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dlob",
			Subsystem: "transport",
			Name:      "slot_lag",
			Help:      "Slots behind the most recently observed slot, by source",
		},
		[]string{"source"},
	)

	c.registerAll()
	return c
}

func (c *Collector) registerAll() {
	prometheus.MustRegister(c.ErrorsTotal)
	prometheus.MustRegister(c.UpdatesApplied)
	prometheus.MustRegister(c.ApplyLatency)
	prometheus.MustRegister(c.QueueDepth)
	prometheus.MustRegister(c.OrdersActive)
	prometheus.MustRegister(c.ReclassifyTotal)
	prometheus.MustRegister(c.SubscriptionsActive)
	prometheus.MustRegister(c.SlotLag)
}

// RecordError increments the error counter for kind (e.g.
// "deserialize_error", "stale_update", "ffi_error").
func (c *Collector) RecordError(kind string) {
	c.ErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordApply records one applied update and its processing latency.
func (c *Collector) RecordApply(marketID, updateType string, latencyMs float64) {
	c.UpdatesApplied.WithLabelValues(marketID, updateType).Inc()
	c.ApplyLatency.WithLabelValues(updateType).Observe(latencyMs)
}

// SetQueueDepth reports the current backlog for a given update source
// (e.g. "account", "slot").
func (c *Collector) SetQueueDepth(source string, depth int) {
	c.QueueDepth.WithLabelValues(source).Set(float64(depth))
}

// SetOrdersActive reports the current resident order count for a market
// side.
func (c *Collector) SetOrdersActive(marketID, side string, n int) {
	c.OrdersActive.WithLabelValues(marketID, side).Set(float64(n))
}

// RecordReclassify records one node moving from one kind to another on a
// slot tick (TakingLimit->RestingLimit, Trigger->Market).
func (c *Collector) RecordReclassify(marketID, fromKind, toKind string) {
	c.ReclassifyTotal.WithLabelValues(marketID, fromKind, toKind).Inc()
}

// SetSlotLag reports how many slots behind source currently is.
func (c *Collector) SetSlotLag(source string, lag uint64) {
	c.SlotLag.WithLabelValues(source).Set(float64(lag))
}

// Handler returns the Prometheus scrape handler for wiring into an HTTP
// mux (see internal/api).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall-clock time for a single operation, matching
// the teacher's metrics.Timer helper.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
