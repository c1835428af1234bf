// Package report turns a profiler State into per-node metrics in call-tree order.
package report

import (
	"time"

	"frameScope/profiler"
)

// NodeMetrics is the reported view of one scope node.
type NodeMetrics struct {
	Depth     int           `json:"depth" msgpack:"depth"`         // 0 for root-level scopes
	Name      string        `json:"name" msgpack:"name"`           // scope name
	Path      string        `json:"path" msgpack:"path"`           // slash-joined names from the root
	TimePct   float64       `json:"time_pct" msgpack:"time_pct"`   // share of the parent's total time
	SelfPct   float64       `json:"self_pct" msgpack:"self_pct"`   // share of own time not spent in children
	Frequency float64       `json:"frequency" msgpack:"frequency"` // calls per second of parent time
	Count     uint64        `json:"count" msgpack:"count"`
	Total     time.Duration `json:"total" msgpack:"total"`
	Self      time.Duration `json:"self" msgpack:"self"`
	Mean      time.Duration `json:"mean" msgpack:"mean"`
	Last      time.Duration `json:"last" msgpack:"last"`
	Min       time.Duration `json:"min" msgpack:"min"`
	Max       time.Duration `json:"max" msgpack:"max"`
	Std       time.Duration `json:"std" msgpack:"std"`
}

// RootBase returns the reference duration of root-level scopes: the sum of
// their totals. Root-level TimePct and Frequency are relative to it.
func RootBase(st *profiler.State) time.Duration {
	return childTotal(st.Root())
}

// Walk reports every executed node of st in depth-first preorder, children in
// first-entered order. Paths are unique since names cannot contain
// profiler.PathSeparator.
//
// A node that has not completed once is skipped together with its subtree,
// even when children inside it already finished: their parent-relative
// metrics have no base yet. A report taken during the first run of an outer
// scope therefore shows nothing below it. Walk does not modify st but must run
// on the goroutine owning it.
func Walk(st *profiler.State) []NodeMetrics {
	root := st.Root()
	base := childTotal(root)
	out := make([]NodeMetrics, 0, 16)
	for _, c := range root.Children() {
		out = walk(out, c, base, 0, "")
	}
	return out
}

func walk(out []NodeMetrics, n *profiler.Node, base time.Duration, depth int, prefix string) []NodeMetrics {
	stats := n.Stats()
	if stats.Count == 0 {
		return out
	}

	path := n.Name()
	if prefix != "" {
		path = prefix + profiler.PathSeparator + path
	}
	children := childTotal(n)
	self := stats.Total - children
	if self < 0 {
		self = 0
	}

	out = append(out, NodeMetrics{
		Depth:     depth,
		Name:      n.Name(),
		Path:      path,
		TimePct:   percent(stats.Total, base),
		SelfPct:   selfPercent(stats.Total, children, len(n.Children()) > 0),
		Frequency: frequency(stats.Count, base),
		Count:     stats.Count,
		Total:     stats.Total,
		Self:      self,
		Mean:      stats.Mean(),
		Last:      stats.Last,
		Min:       stats.Min,
		Max:       stats.Max,
		Std:       stats.Std(),
	})

	for _, c := range n.Children() {
		out = walk(out, c, stats.Total, depth+1, path)
	}
	return out
}

func childTotal(n *profiler.Node) time.Duration {
	var total time.Duration
	for _, c := range n.Children() {
		total += c.Stats().Total
	}
	return total
}

func percent(part, whole time.Duration) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func selfPercent(total, children time.Duration, hasChildren bool) float64 {
	if !hasChildren || total <= 0 {
		return 100
	}
	pct := float64(total-children) / float64(total) * 100
	return min(max(pct, 0), 100)
}

func frequency(count uint64, parent time.Duration) float64 {
	if parent <= 0 {
		return 0
	}
	return float64(count) / parent.Seconds()
}
