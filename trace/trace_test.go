package trace

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []Event {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	return []Event{
		{
			Timestamp:   ts,
			SessionID:   "sess-1",
			Direction:   DirectionOut,
			Kind:        KindControl,
			Setup:       &Setup{RequestType: 0x40},
			Requested:   8,
			Transferred: 8,
			Data:        []byte("saveenv\x00"),
		},
		{
			Timestamp:   ts.Add(time.Millisecond),
			SessionID:   "sess-1",
			Direction:   DirectionIn,
			Kind:        KindBulk,
			Endpoint:    0x81,
			Requested:   1024,
			Transferred: 0,
			Error:       "transfer timeout",
		},
	}
}

func TestEventRoundTrip(t *testing.T) {
	for _, ev := range sampleEvents() {
		var buf bytes.Buffer
		require.NoError(t, NewEncoder(&buf).Encode(ev))

		got, err := NewStreamReader(&buf).Next()
		require.NoError(t, err)
		assert.True(t, ev.Timestamp.Equal(got.Timestamp))
		got.Timestamp = ev.Timestamp
		assert.Equal(t, ev, got)
	}
}

func TestFileTracerWritesAndReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.trace")

	tracer, err := NewFileTracer(path)
	require.NoError(t, err)
	for _, ev := range sampleEvents() {
		tracer.Trace(ev)
	}
	require.NoError(t, tracer.Close())
	require.NoError(t, tracer.Close(), "close must be idempotent")

	// Ignored after close.
	tracer.Trace(sampleEvents()[0])

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	var kinds []Kind
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []Kind{KindControl, KindBulk}, kinds)
}

func TestStreamReader(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(sampleEvents()[1]))

	r := NewStreamReader(&buf)
	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x81), ev.Endpoint)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, r.Close())
}

func TestHexTracer(t *testing.T) {
	var out bytes.Buffer
	h := NewHexTracer(&out)
	for _, ev := range sampleEvents() {
		h.Trace(ev)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "H->D control setup=40/00/0000/0000 8/8 bytes")
	assert.Contains(t, lines[0], "hex: 73 61 76 65 65 6e 76 00")
	assert.Contains(t, lines[1], "D->H bulk ep=0x81 0/1024 bytes")
	assert.Contains(t, lines[1], `error="transfer timeout"`)
}

func TestHexTracerNilWriter(t *testing.T) {
	assert.NotPanics(t, func() {
		NewHexTracer(nil).Trace(sampleEvents()[0])
	})
}

type recorder struct{ events []Event }

func (r *recorder) Trace(ev Event) { r.events = append(r.events, ev) }

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, Nop, b}
	m.Trace(sampleEvents()[0])
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestKindAndDirectionStrings(t *testing.T) {
	assert.Equal(t, "reset", KindReset.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, "D->H", DirectionIn.String())
	assert.Equal(t, "unknown", Direction(7).String())
}
