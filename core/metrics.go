package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Metric names emitted by the upsert and write-back paths.
const (
	MetricUpsertTotal       = "contentsync.upsert.total"
	MetricUpsertDuration    = "contentsync.upsert.duration_ms"
	MetricWriteBackTotal    = "contentsync.write_back.total"
	MetricWriteBackDuration = "contentsync.write_back.duration_ms"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// TallyMetrics keeps in-process counter totals keyed by metric name and
// the outcome (or status) tag. Histograms are reduced to an observation count and sum.
type TallyMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
	observed map[string]HistogramTally
}

type HistogramTally struct {
	Count int64
	Sum   float64
}

func NewTallyMetrics() *TallyMetrics {
	return &TallyMetrics{
		counters: map[string]int64{},
		observed: map[string]HistogramTally{},
	}
}

func (m *TallyMetrics) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[tallyKey(name, tags)] += value
}

func (m *TallyMetrics) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tallyKey(name, tags)
	current := m.observed[key]
	current.Count++
	current.Sum += value
	m.observed[key] = current
}

// Counter returns the total for name, optionally narrowed to one outcome.
func (m *TallyMetrics) Counter(name string, outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if outcome != "" {
		return m.counters[name+"|"+outcome]
	}
	var total int64
	for key, value := range m.counters {
		if key == name || strings.HasPrefix(key, name+"|") {
			total += value
		}
	}
	return total
}

// Counters returns a copy of every counter keyed as name or name|outcome.
func (m *TallyMetrics) Counters() map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.counters)
}

// Histogram returns the reduced observations for name across all outcomes.
func (m *TallyMetrics) Histogram(name string) HistogramTally {
	if m == nil {
		return HistogramTally{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out HistogramTally
	for _, key := range slices.Sorted(maps.Keys(m.observed)) {
		if key == name || strings.HasPrefix(key, name+"|") {
			out.Count += m.observed[key].Count
			out.Sum += m.observed[key].Sum
		}
	}
	return out
}

func tallyKey(name string, tags map[string]string) string {
	outcome := tags["outcome"]
	if outcome == "" {
		outcome = tags["status"]
	}
	if outcome == "" {
		return name
	}
	return name + "|" + outcome
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ MetricsRecorder = (*TallyMetrics)(nil)
)
