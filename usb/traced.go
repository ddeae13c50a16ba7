package usb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/moffa90/go-irecovery/trace"
)

// TracedOpener wraps an Opener so that every opened Transport reports its
// transfers to tracer. Each opened device gets a fresh session ID.
// A nil tracer discards events.
func TracedOpener(o Opener, tracer trace.Tracer) Opener {
	if tracer == nil {
		tracer = trace.Nop
	}
	return OpenerFunc(func(ctx context.Context, sel Selector) (Transport, error) {
		id := uuid.NewString()
		t, err := o.Open(ctx, sel)
		ev := trace.Event{
			Timestamp: time.Now(),
			SessionID: id,
			Kind:      trace.KindOpen,
			Data:      []byte(sel.String()),
		}
		if err != nil {
			ev.Error = err.Error()
			tracer.Trace(ev)
			return nil, err
		}
		tracer.Trace(ev)
		return Traced(t, tracer, id), nil
	})
}

// Traced wraps t so that every operation is reported to tracer.
// A nil tracer discards events.
func Traced(t Transport, tracer trace.Tracer, sessionID string) Transport {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &tracedTransport{next: t, tracer: tracer, id: sessionID}
}

type tracedTransport struct {
	next   Transport
	tracer trace.Tracer
	id     string
}

func (t *tracedTransport) BulkTransfer(ctx context.Context, endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	n, err := t.next.BulkTransfer(ctx, endpoint, buf, timeout)
	ev := t.event(trace.KindBulk, directionOf(endpoint), len(buf), n, err)
	ev.Endpoint = endpoint
	ev.Data = payload(buf, n)
	t.tracer.Trace(ev)
	return n, err
}

func (t *tracedTransport) ControlTransfer(ctx context.Context, requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	n, err := t.next.ControlTransfer(ctx, requestType, request, value, index, data, timeout)
	ev := t.event(trace.KindControl, directionOf(requestType), len(data), n, err)
	ev.Setup = &trace.Setup{RequestType: requestType, Request: request, Value: value, Index: index}
	ev.Data = payload(data, n)
	t.tracer.Trace(ev)
	return n, err
}

func (t *tracedTransport) Reset() error {
	err := t.next.Reset()
	t.tracer.Trace(t.event(trace.KindReset, trace.DirectionOut, 0, 0, err))
	return err
}

func (t *tracedTransport) SerialNumber() (string, error) {
	return t.next.SerialNumber()
}

func (t *tracedTransport) Close() error {
	err := t.next.Close()
	t.tracer.Trace(t.event(trace.KindClose, trace.DirectionOut, 0, 0, err))
	return err
}

func (t *tracedTransport) event(kind trace.Kind, dir trace.Direction, requested, transferred int, err error) trace.Event {
	ev := trace.Event{
		Timestamp:   time.Now(),
		SessionID:   t.id,
		Direction:   dir,
		Kind:        kind,
		Requested:   requested,
		Transferred: transferred,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// directionOf reads the direction bit shared by endpoint addresses and
// bmRequestType.
func directionOf(b uint8) trace.Direction {
	if b&0x80 != 0 {
		return trace.DirectionIn
	}
	return trace.DirectionOut
}

func payload(buf []byte, n int) []byte {
	if n <= 0 || len(buf) == 0 {
		return nil
	}
	if n > len(buf) {
		n = len(buf)
	}
	return buf[:n]
}
