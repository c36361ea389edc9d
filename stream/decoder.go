package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
)

// readChunkSize is the size of each read from the underlying transport.
const readChunkSize = 4096

// Decoder reads newline-delimited JSON events from a byte stream. It
// tolerates chunk boundaries splitting an event across reads by buffering
// the incomplete trailing line until the rest arrives. Lines that fail to
// parse as JSON are skipped; a corrupt line must not abort the stream.
type Decoder struct {
	r       io.Reader
	logger  *slog.Logger
	carry   []byte
	pending [][]byte
	eof     bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used for skipped-line diagnostics.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// NewDecoder creates a Decoder over r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		r:      r,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next decoded event. It returns io.EOF once the
// underlying transport closes; a trailing partial line without a newline
// is discarded, matching the flush-complete-lines-only contract.
func (d *Decoder) Next() (*Event, error) {
	for {
		for len(d.pending) > 0 {
			line := d.pending[0]
			d.pending = d.pending[1:]

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}

			var ev Event
			if err := json.Unmarshal(line, &ev); err != nil {
				d.logger.Debug("Skipping malformed stream line",
					"error", err,
					"bytes", len(line))
				continue
			}
			return &ev, nil
		}

		if d.eof {
			return nil, io.EOF
		}
		if err := d.fill(); err != nil {
			return nil, err
		}
	}
}

// fill reads one chunk from the transport and splits out complete lines.
func (d *Decoder) fill() error {
	buf := make([]byte, readChunkSize)
	n, err := d.r.Read(buf)
	if n > 0 {
		d.carry = append(d.carry, buf[:n]...)
		for {
			idx := bytes.IndexByte(d.carry, '\n')
			if idx < 0 {
				break
			}
			line := make([]byte, idx)
			copy(line, d.carry[:idx])
			d.pending = append(d.pending, line)
			d.carry = d.carry[idx+1:]
		}
	}
	if err == io.EOF {
		d.eof = true
		return nil
	}
	return err
}
