// Package metrics exposes the latest scope snapshot of every scope set as
// Prometheus metrics.
package metrics

import (
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"frameScope/report"
)

var labelNames = []string{"set", "path"}

// Exporter is a prometheus.Collector over the most recent snapshot per label.
// Values are running totals since the scope set was last reset.
type Exporter struct {
	mu     sync.RWMutex
	latest map[string]*report.Snapshot

	calls     *prometheus.Desc
	seconds   *prometheus.Desc
	mean      *prometheus.Desc
	std       *prometheus.Desc
	timeRatio *prometheus.Desc
	frequency *prometheus.Desc
	registry  *prometheus.Registry
}

// NewExporter creates an Exporter registered in its own registry.
func NewExporter(namespace string) *Exporter {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "scope", name), help, labelNames, nil)
	}
	e := &Exporter{
		latest:    make(map[string]*report.Snapshot),
		calls:     desc("calls_total", "Completed executions of the scope"),
		seconds:   desc("seconds_total", "Accumulated wall time spent in the scope"),
		mean:      desc("mean_seconds", "Mean duration of one execution"),
		std:       desc("std_seconds", "Population standard deviation of one execution"),
		timeRatio: desc("time_ratio", "Share of the parent's time spent in the scope"),
		frequency: desc("frequency_hertz", "Executions per second of parent time"),
		registry:  prometheus.NewRegistry(),
	}
	e.registry.MustRegister(e)
	return e
}

// Observe replaces the stored snapshot for snap.Label.
func (e *Exporter) Observe(snap *report.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest[snap.Label] = snap
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.calls
	ch <- e.seconds
	ch <- e.mean
	ch <- e.std
	ch <- e.timeRatio
	ch <- e.frequency
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sets := make([]string, 0, len(e.latest))
	for label := range e.latest {
		sets = append(sets, label)
	}
	sort.Strings(sets)

	for _, set := range sets {
		for _, m := range e.latest[set].Metrics {
			ch <- prometheus.MustNewConstMetric(e.calls, prometheus.CounterValue, float64(m.Count), set, m.Path)
			ch <- prometheus.MustNewConstMetric(e.seconds, prometheus.CounterValue, m.Total.Seconds(), set, m.Path)
			ch <- prometheus.MustNewConstMetric(e.mean, prometheus.GaugeValue, m.Mean.Seconds(), set, m.Path)
			ch <- prometheus.MustNewConstMetric(e.std, prometheus.GaugeValue, m.Std.Seconds(), set, m.Path)
			ch <- prometheus.MustNewConstMetric(e.timeRatio, prometheus.GaugeValue, m.TimePct/100, set, m.Path)
			ch <- prometheus.MustNewConstMetric(e.frequency, prometheus.GaugeValue, m.Frequency, set, m.Path)
		}
	}
}

// Registry returns the registry the exporter is registered in.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the exporter's registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
