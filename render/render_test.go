package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"frameScope/report"
)

func sampleMetrics() []report.NodeMetrics {
	return []report.NodeMetrics{
		{Depth: 0, Name: "frame", TimePct: 100, SelfPct: 1, Frequency: 96.17, Count: 100, Mean: 10400 * time.Microsecond, Last: 10 * time.Millisecond, Min: 10 * time.Millisecond, Max: 14 * time.Millisecond, Std: 300 * time.Microsecond},
		{Depth: 1, Name: "physics", TimePct: 3.04, SelfPct: 66.15, Frequency: 9.62, Count: 10, Mean: 3160 * time.Microsecond},
		{Depth: 2, Name: "collisions", TimePct: 33.85, SelfPct: 100, Frequency: 9.62, Count: 10, Mean: 1070 * time.Microsecond},
		{Depth: 1, Name: "描画", TimePct: 96.84, SelfPct: 100, Frequency: 96.17, Count: 100, Mean: 10070 * time.Microsecond},
	}
}

func TestPrintLines(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, sampleMetrics()); err != nil {
		t.Fatalf("Print: %v", err)
	}
	want := "frame: 100.00%, 10.40ms/call @ 96.17Hz\n" +
		"  physics: 3.04%, 3.16ms/call @ 9.62Hz\n" +
		"    collisions: 33.85%, 1.07ms/call @ 9.62Hz\n" +
		"  描画: 96.84%, 10.07ms/call @ 96.17Hz\n"
	if buf.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestTableColumnsAlign(t *testing.T) {
	var buf bytes.Buffer
	sink := &TextSink{W: &buf, Layout: LayoutTable}
	if err := sink.WriteMetrics(sampleMetrics()); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header + 4 rows:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "scope") || strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("unexpected header or escape codes: %q", lines[0])
	}
	width := runewidth.StringWidth(lines[0])
	for _, line := range lines[1:] {
		if w := runewidth.StringWidth(line); w != width {
			t.Fatalf("row width %d != header width %d: %q", w, width, line)
		}
	}
	if !strings.HasPrefix(lines[3], "    collisions") {
		t.Fatalf("depth indentation missing: %q", lines[3])
	}
}

func TestTableTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("x", 80)
	var buf bytes.Buffer
	sink := &TextSink{W: &buf, Layout: LayoutTable}
	if err := sink.WriteMetrics([]report.NodeMetrics{{Name: long, TimePct: 100, SelfPct: 100, Count: 1}}); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	if strings.Contains(buf.String(), long) || !strings.Contains(buf.String(), "...") {
		t.Fatalf("long name not truncated:\n%s", buf.String())
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestTextSinkFailureIsTyped(t *testing.T) {
	err := report.WriteMetrics(sampleMetrics(), &TextSink{W: brokenWriter{}})
	var sinkErr *report.SinkError
	if !errors.As(err, &sinkErr) || sinkErr.Sink != "text/lines" {
		t.Fatalf("error = %v, want *report.SinkError from text/lines", err)
	}
}

func TestMsgpackSinkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := &MsgpackSink{W: &buf}
	metrics := sampleMetrics()
	if err := sink.WriteMetrics(metrics); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	got, err := DecodeMetrics(&buf)
	if err != nil {
		t.Fatalf("DecodeMetrics: %v", err)
	}
	if len(got) != len(metrics) || got[3].Name != "描画" || got[0].Mean != metrics[0].Mean || got[2].Depth != 2 {
		t.Fatalf("decoded %+v", got)
	}
}

func TestParseLayout(t *testing.T) {
	for in, want := range map[string]Layout{"": LayoutLines, "lines": LayoutLines, "TABLE": LayoutTable} {
		got, err := ParseLayout(in)
		if err != nil || got != want {
			t.Fatalf("ParseLayout(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLayout("html"); err == nil {
		t.Fatalf("ParseLayout accepted html")
	}
}
