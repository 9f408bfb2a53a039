// Package prom exports store metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vecstore"
)

var _ vecstore.MetricsCollector = (*Collector)(nil)

// Collector implements vecstore.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency    *prometheus.HistogramVec
	items        *prometheus.CounterVec
	searchK      prometheus.Histogram
	searchEmpty  prometheus.Counter
	persistBytes prometheus.Counter
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of store operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Texts added and records deleted",
		}, []string{"op"}),
		searchK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_k",
			Help:      "Requested number of neighbors per search",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		searchEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_empty_total",
			Help:      "Searches that returned no results",
		}),
		persistBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_bytes_total",
			Help:      "Bytes written to artifact storage",
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.items, c.searchK, c.searchEmpty, c.persistBytes} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAdd implements vecstore.MetricsCollector.
func (c *Collector) RecordAdd(count int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("add", status(err)).Observe(d.Seconds())
	c.items.WithLabelValues("add").Add(float64(count))
}

// RecordSearch implements vecstore.MetricsCollector.
func (c *Collector) RecordSearch(k, results int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("search", status(err)).Observe(d.Seconds())
	c.searchK.Observe(float64(k))
	if err == nil && results == 0 {
		c.searchEmpty.Inc()
	}
}

// RecordDelete implements vecstore.MetricsCollector.
func (c *Collector) RecordDelete(count int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("delete", status(err)).Observe(d.Seconds())
	c.items.WithLabelValues("delete").Add(float64(count))
}

// RecordPersist implements vecstore.MetricsCollector.
func (c *Collector) RecordPersist(bytes int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("persist", status(err)).Observe(d.Seconds())
	if err == nil {
		c.persistBytes.Add(float64(bytes))
	}
}
