package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carretometro-backend/internal/metrics"
	"carretometro-backend/internal/model"
)

// Collectors exposes the latest snapshot as Prometheus metrics.
type Collectors struct {
	registry *prometheus.Registry

	// VisitsByStatus tracks the number of visits in each status
	VisitsByStatus *prometheus.GaugeVec
	// BucketAverage is the average running time of each SLA bucket
	BucketAverage *prometheus.GaugeVec
	// BucketProgress is the average as a fraction of the bucket target
	BucketProgress *prometheus.GaugeVec
	// BucketVisits counts the active visits in each bucket
	BucketVisits *prometheus.GaugeVec
	// BreachesTotal counts SLA breaches seen for the first time
	BreachesTotal *prometheus.CounterVec
	// RecomputeDuration measures one monitor tick
	RecomputeDuration prometheus.Histogram
}

// NewCollectors creates the collectors on a dedicated registry that also
// carries the Go and process collectors.
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		VisitsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "carretometro_visits_by_status",
				Help: "Number of visits by status",
			},
			[]string{"status"},
		),
		BucketAverage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "carretometro_bucket_average_seconds",
				Help: "Average running time of active visits per SLA bucket",
			},
			[]string{"bucket"},
		),
		BucketProgress: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "carretometro_bucket_sla_progress_ratio",
				Help: "Bucket average divided by its SLA target",
			},
			[]string{"bucket"},
		),
		BucketVisits: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "carretometro_bucket_active_visits",
				Help: "Number of active visits per SLA bucket",
			},
			[]string{"bucket"},
		),
		BreachesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carretometro_sla_breaches_total",
				Help: "Total number of SLA breaches detected",
			},
			[]string{"bucket"},
		),
		RecomputeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "carretometro_recompute_duration_seconds",
				Help:    "Duration of one monitor recompute in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.VisitsByStatus,
		c.BucketAverage,
		c.BucketProgress,
		c.BucketVisits,
		c.BreachesTotal,
		c.RecomputeDuration,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collectors) observe(snap metrics.Snapshot) {
	for _, s := range model.AllStatuses {
		c.VisitsByStatus.WithLabelValues(string(s)).Set(float64(snap.StatusCounts[s]))
	}
	stats := append([]metrics.BucketStat{snap.Queue, snap.AwaitingPart}, snap.Maintenance...)
	for _, stat := range stats {
		label := string(stat.Bucket)
		c.BucketAverage.WithLabelValues(label).Set(stat.AverageSeconds)
		c.BucketProgress.WithLabelValues(label).Set(stat.Progress)
		c.BucketVisits.WithLabelValues(label).Set(float64(stat.Count))
	}
}
