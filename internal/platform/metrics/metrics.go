package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the governance engine.
type Collector struct {
	registry *prometheus.Registry

	consentGranted   *prometheus.CounterVec
	consentWithdrawn *prometheus.CounterVec
	consentExpired   *prometheus.CounterVec
	purgeRuns        *prometheus.CounterVec
	purgeDeleted     *prometheus.CounterVec
	purgeErrors      prometheus.Counter
	schedulerRunning prometheus.Gauge
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		consentGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pfm", Subsystem: "consent",
			Name: "granted_total", Help: "Consent records written with granted=true.",
		}, []string{"type"}),
		consentWithdrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pfm", Subsystem: "consent",
			Name: "withdrawn_total", Help: "Consent records written with granted=false.",
		}, []string{"type"}),
		consentExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pfm", Subsystem: "consent",
			Name: "expired_total", Help: "Withdrawals synthesized by expiry processing.",
		}, []string{"type"}),
		purgeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pfm", Subsystem: "retention",
			Name: "purge_runs_total", Help: "Completed purge runs by outcome.",
		}, []string{"result"}),
		purgeDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pfm", Subsystem: "retention",
			Name: "items_deleted_total", Help: "Items deleted by purge runs.",
		}, []string{"category"}),
		purgeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pfm", Subsystem: "retention",
			Name: "item_errors_total", Help: "Item-level deletion failures inside purge runs.",
		}),
		schedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pfm", Subsystem: "retention",
			Name: "scheduler_running", Help: "Whether the retention scheduler is running.",
		}),
	}
	registry.MustRegister(
		c.consentGranted, c.consentWithdrawn, c.consentExpired,
		c.purgeRuns, c.purgeDeleted, c.purgeErrors, c.schedulerRunning,
	)
	return c
}

func (c *Collector) ConsentGranted(consentType string)   { c.consentGranted.WithLabelValues(consentType).Inc() }
func (c *Collector) ConsentWithdrawn(consentType string) { c.consentWithdrawn.WithLabelValues(consentType).Inc() }
func (c *Collector) ConsentExpired(consentType string)   { c.consentExpired.WithLabelValues(consentType).Inc() }

func (c *Collector) PurgeRun(result string) { c.purgeRuns.WithLabelValues(result).Inc() }

func (c *Collector) ItemsDeleted(category string, count int) {
	c.purgeDeleted.WithLabelValues(category).Add(float64(count))
}

func (c *Collector) ItemError() { c.purgeErrors.Inc() }

func (c *Collector) SchedulerRunning(running bool) {
	if running {
		c.schedulerRunning.Set(1)
	} else {
		c.schedulerRunning.Set(0)
	}
}

// Handler serves the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
