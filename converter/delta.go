package converter

import (
	"frameScope/report"
)

// Delta returns what cur added on top of prev. Snapshots hold running totals
// since the last reset, so exporting them unchanged would count every interval
// again. Without a prev from the same generation, cur is returned unchanged.
func Delta(prev, cur *report.Snapshot) report.Snapshot {
	out := *cur
	if prev == nil || prev.Label != cur.Label || prev.Generation != cur.Generation {
		out.Metrics = append([]report.NodeMetrics(nil), cur.Metrics...)
		return out
	}

	before := make(map[string]report.NodeMetrics, len(prev.Metrics))
	for _, m := range prev.Metrics {
		before[m.Path] = m
	}

	out.Base = max(cur.Base-prev.Base, 0)
	out.Metrics = make([]report.NodeMetrics, len(cur.Metrics))
	for i, m := range cur.Metrics {
		p, ok := before[m.Path]
		if ok && m.Count >= p.Count {
			m.Count -= p.Count
			m.Total = max(m.Total-p.Total, 0)
			m.Self = max(m.Self-p.Self, 0)
		}
		out.Metrics[i] = m
	}
	return out
}
