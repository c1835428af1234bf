package report

import (
	"fmt"
	"time"

	"frameScope/profiler"
)

// Sink consumes reported metrics, e.g. a renderer, an encoder or an exporter.
type Sink interface {
	WriteMetrics(metrics []NodeMetrics) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(metrics []NodeMetrics) error

// WriteMetrics calls f.
func (f SinkFunc) WriteMetrics(metrics []NodeMetrics) error { return f(metrics) }

// SinkError reports a sink that failed to accept metrics.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("report sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Write walks st and hands the metrics to sink. A sink failure is returned as *SinkError.
func Write(st *profiler.State, sink Sink) error {
	return WriteMetrics(Walk(st), sink)
}

// WriteMetrics hands already collected metrics to sink, wrapping failures in *SinkError.
func WriteMetrics(metrics []NodeMetrics, sink Sink) error {
	if err := sink.WriteMetrics(metrics); err != nil {
		return &SinkError{Sink: sinkName(sink), Err: err}
	}
	return nil
}

func sinkName(sink Sink) string {
	if named, ok := sink.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", sink)
}

// Snapshot is a copy of a State's metrics that can leave the owning goroutine.
type Snapshot struct {
	Label      string        `json:"label" msgpack:"label"`
	Taken      time.Time     `json:"taken" msgpack:"taken"`
	Generation uint64        `json:"generation" msgpack:"generation"` // reset count of the source State
	Base       time.Duration `json:"base" msgpack:"base"`             // RootBase at capture time
	Metrics    []NodeMetrics `json:"metrics" msgpack:"metrics"`
}

// Take snapshots st on its owning goroutine.
func Take(st *profiler.State, label string) Snapshot {
	return Snapshot{
		Label:      label,
		Taken:      time.Now(),
		Generation: st.Generation(),
		Base:       RootBase(st),
		Metrics:    Walk(st),
	}
}
