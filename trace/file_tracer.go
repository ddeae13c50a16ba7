package trace

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileTracer appends CBOR-encoded events to a file.
// It is safe for concurrent use.
type FileTracer struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileTracer opens (or creates) path for appending events.
func NewFileTracer(path string) (*FileTracer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileTracer{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Trace writes the event. Encoding errors are dropped so tracing never
// interferes with the transfer being traced.
func (t *FileTracer) Trace(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	_ = t.encoder.Encode(event)
}

// Close closes the file. Further events are ignored.
func (t *FileTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.file.Close()
}

var _ Tracer = (*FileTracer)(nil)

// Reader streams events from a CBOR trace.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
}

// NewReader opens a trace file written by FileTracer.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f)
	r.closer = f
	return r, nil
}

// NewStreamReader reads events from r.
func NewStreamReader(r io.Reader) *Reader {
	return &Reader{decoder: NewDecoder(r)}
}

// Next returns the next event, or io.EOF at the end of the trace.
func (r *Reader) Next() (Event, error) {
	var event Event
	if err := r.decoder.Decode(&event); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		return Event{}, err
	}
	return event, nil
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
