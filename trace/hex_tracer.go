package trace

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// HexTracer writes one line per event with a hex dump of the payload.
type HexTracer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewHexTracer returns a tracer writing to w. A nil writer discards events.
func NewHexTracer(w io.Writer) *HexTracer {
	return &HexTracer{w: w}
}

// Trace emits the event as a single line.
func (h *HexTracer) Trace(event Event) {
	if h.w == nil {
		return
	}

	var target string
	switch {
	case event.Setup != nil:
		target = fmt.Sprintf("setup=%02x/%02x/%04x/%04x",
			event.Setup.RequestType, event.Setup.Request, event.Setup.Value, event.Setup.Index)
	case event.Kind == KindBulk:
		target = fmt.Sprintf("ep=0x%02x", event.Endpoint)
	}

	var line bytes.Buffer
	fmt.Fprintf(&line, "%s %s %s", event.Timestamp.Format("2006/01/02 15:04:05.000"), event.Direction, event.Kind)
	if target != "" {
		line.WriteByte(' ')
		line.WriteString(target)
	}
	fmt.Fprintf(&line, " %d/%d bytes", event.Transferred, event.Requested)
	if event.Error != "" {
		fmt.Fprintf(&line, " error=%q", event.Error)
	}
	if len(event.Data) > 0 {
		line.WriteString(" hex: ")
		writeHex(&line, event.Data)
	}
	line.WriteByte('\n')

	h.mu.Lock()
	_, _ = h.w.Write(line.Bytes())
	h.mu.Unlock()
}

func writeHex(buf *bytes.Buffer, data []byte) {
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteByte(hexdigits[b>>4])
		buf.WriteByte(hexdigits[b&0x0f])
	}
}

var _ Tracer = (*HexTracer)(nil)
