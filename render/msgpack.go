package render

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"frameScope/report"
)

// MsgpackSink encodes each batch of metrics as one msgpack array on W, for
// tools that consume reports as data instead of text.
type MsgpackSink struct {
	W io.Writer
}

// Name identifies the sink in report errors.
func (s *MsgpackSink) Name() string { return "msgpack" }

// WriteMetrics encodes metrics.
func (s *MsgpackSink) WriteMetrics(metrics []report.NodeMetrics) error {
	return msgpack.NewEncoder(s.W).Encode(metrics)
}

// DecodeMetrics reads one batch written by MsgpackSink. To read several batches
// from one stream, pass the same io.ByteScanner (e.g. a *bufio.Reader) each time.
func DecodeMetrics(r io.Reader) ([]report.NodeMetrics, error) {
	var metrics []report.NodeMetrics
	if err := msgpack.NewDecoder(r).Decode(&metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}
