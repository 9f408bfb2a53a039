package vecstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// See package prom for a Prometheus implementation.
type MetricsCollector interface {
	// RecordAdd is called after each AddTexts call with the number of texts added.
	RecordAdd(count int, duration time.Duration, err error)

	// RecordSearch is called after each vector search.
	// k is the number of neighbors requested, results the number returned.
	RecordSearch(k, results int, duration time.Duration, err error)

	// RecordDelete is called after each Delete call with the number of records newly deleted.
	RecordDelete(count int, duration time.Duration, err error)

	// RecordPersist is called after each artifact save.
	RecordPersist(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordPersist(int, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddItems         atomic.Int64
	AddErrors        atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	DeleteCount      atomic.Int64
	DeleteItems      atomic.Int64
	DeleteErrors     atomic.Int64
	PersistCount     atomic.Int64
	PersistBytes     atomic.Int64
	PersistErrors    atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(count int, _ time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddItems.Add(int64(count))
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, _ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(count int, _ time.Duration, err error) {
	b.DeleteCount.Add(1)
	b.DeleteItems.Add(int64(count))
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(bytes int, _ time.Duration, err error) {
	b.PersistCount.Add(1)
	b.PersistBytes.Add(int64(bytes))
	if err != nil {
		b.PersistErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		AddCount:      b.AddCount.Load(),
		AddItems:      b.AddItems.Load(),
		AddErrors:     b.AddErrors.Load(),
		SearchCount:   b.SearchCount.Load(),
		SearchErrors:  b.SearchErrors.Load(),
		DeleteCount:   b.DeleteCount.Load(),
		DeleteItems:   b.DeleteItems.Load(),
		DeleteErrors:  b.DeleteErrors.Load(),
		PersistCount:  b.PersistCount.Load(),
		PersistBytes:  b.PersistBytes.Load(),
		PersistErrors: b.PersistErrors.Load(),
	}
	if s.SearchCount > 0 {
		s.SearchAvgNanos = b.SearchTotalNanos.Load() / s.SearchCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddItems       int64
	AddErrors      int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	DeleteCount    int64
	DeleteItems    int64
	DeleteErrors   int64
	PersistCount   int64
	PersistBytes   int64
	PersistErrors  int64
}
