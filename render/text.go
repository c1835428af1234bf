// Package render formats reported scope metrics for people and tools.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"frameScope/report"
)

// Layout selects how TextSink prints metrics.
type Layout uint8

const (
	LayoutLines Layout = iota // one "name: pct, ms/call @ Hz" line per node
	LayoutTable               // aligned columns with every statistic
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutLines:
		return "lines"
	case LayoutTable:
		return "table"
	default:
		return "unknown"
	}
}

// ParseLayout converts a layout name to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "lines", "":
		return LayoutLines, nil
	case "table":
		return LayoutTable, nil
	default:
		return LayoutLines, fmt.Errorf("invalid layout: %q (expected: lines|table)", s)
	}
}

// maxNameWidth caps the name column of the table, indentation included.
const maxNameWidth = 40

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	hotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// TextSink renders metrics as text to W.
type TextSink struct {
	W      io.Writer
	Layout Layout
	Color  bool // style the table header and hot rows with ANSI escapes
}

// Name identifies the sink in report errors.
func (s *TextSink) Name() string { return "text/" + s.Layout.String() }

// WriteMetrics renders metrics and writes them in one call to W.
func (s *TextSink) WriteMetrics(metrics []report.NodeMetrics) error {
	var buf bytes.Buffer
	switch s.Layout {
	case LayoutTable:
		writeTable(&buf, metrics, s.Color)
	default:
		writeLines(&buf, metrics)
	}
	_, err := s.W.Write(buf.Bytes())
	return err
}

// Print writes metrics to w, one indented line per node:
//
//	frame: 100.00%, 10.40ms/call @ 96.17Hz
//	  physics: 3.04%, 3.16ms/call @ 9.62Hz
func Print(w io.Writer, metrics []report.NodeMetrics) error {
	sink := TextSink{W: w, Layout: LayoutLines}
	return sink.WriteMetrics(metrics)
}

func writeLines(buf *bytes.Buffer, metrics []report.NodeMetrics) {
	for _, m := range metrics {
		buf.WriteString(strings.Repeat("  ", m.Depth))
		fmt.Fprintf(buf, "%s: %3.2f%%, %4.2fms/call @ %.2fHz\n", m.Name, m.TimePct, millis(m.Mean), m.Frequency)
	}
}

func writeTable(buf *bytes.Buffer, metrics []report.NodeMetrics, color bool) {
	nameWidth := runewidth.StringWidth("scope")
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = truncate(strings.Repeat("  ", m.Depth)+m.Name, maxNameWidth)
		nameWidth = max(nameWidth, runewidth.StringWidth(names[i]))
	}

	header := fmt.Sprintf("%s %8s %8s %8s %10s %10s %10s %10s %10s %10s",
		runewidth.FillRight("scope", nameWidth), "time%", "self%", "calls", "Hz", "mean ms", "last ms", "min ms", "max ms", "std ms")
	if color {
		header = headerStyle.Render(header)
	}
	buf.WriteString(header)
	buf.WriteByte('\n')

	for i, m := range metrics {
		row := fmt.Sprintf("%s %8.2f %8.2f %8d %10.2f %10.3f %10.3f %10.3f %10.3f %10.3f",
			runewidth.FillRight(names[i], nameWidth),
			m.TimePct, m.SelfPct, m.Count, m.Frequency,
			millis(m.Mean), millis(m.Last), millis(m.Min), millis(m.Max), millis(m.Std))
		if color {
			switch {
			case m.TimePct >= 50 && m.Depth > 0:
				row = hotStyle.Render(row)
			case m.TimePct >= 25 && m.Depth > 0:
				row = warmStyle.Render(row)
			}
		}
		buf.WriteString(row)
		buf.WriteByte('\n')
	}
}

func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
