package trace

import "time"

// Event describes a single USB operation.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the operation completed.
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the connection the operation belongs to.
	SessionID string `cbor:"2,keyasint"`

	// Direction of the data stage.
	Direction Direction `cbor:"3,keyasint"`

	// Kind of USB operation.
	Kind Kind `cbor:"4,keyasint"`

	// Endpoint address for bulk transfers.
	Endpoint uint8 `cbor:"5,keyasint,omitempty"`

	// Setup holds the setup packet fields for control transfers.
	Setup *Setup `cbor:"6,keyasint,omitempty"`

	// Requested is the number of bytes requested.
	Requested int `cbor:"7,keyasint"`

	// Transferred is the number of bytes actually moved.
	Transferred int `cbor:"8,keyasint"`

	// Data holds the transferred bytes.
	Data []byte `cbor:"9,keyasint,omitempty"`

	// Error is the error text, empty on success.
	Error string `cbor:"10,keyasint,omitempty"`
}

// Setup mirrors the fields of a USB control setup packet.
type Setup struct {
	RequestType uint8  `cbor:"1,keyasint"`
	Request     uint8  `cbor:"2,keyasint"`
	Value       uint16 `cbor:"3,keyasint"`
	Index       uint16 `cbor:"4,keyasint"`
}

// Direction indicates data flow relative to the host.
type Direction uint8

const (
	// DirectionOut is host to device.
	DirectionOut Direction = 0
	// DirectionIn is device to host.
	DirectionIn Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "D->H"
	case DirectionOut:
		return "H->D"
	default:
		return "unknown"
	}
}

// Kind identifies the USB operation.
type Kind uint8

const (
	KindControl Kind = iota
	KindBulk
	KindReset
	KindOpen
	KindClose
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindBulk:
		return "bulk"
	case KindReset:
		return "reset"
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	default:
		return "unknown"
	}
}

// Tracer receives transfer events.
// Implementations must not retain Event.Data after Trace returns.
type Tracer interface {
	Trace(event Event)
}

// Nop discards every event.
var Nop Tracer = nopTracer{}

type nopTracer struct{}

func (nopTracer) Trace(Event) {}

// Multi sends events to several tracers.
type Multi []Tracer

// Trace forwards the event to every tracer in order.
func (m Multi) Trace(event Event) {
	for _, t := range m {
		t.Trace(event)
	}
}

var _ Tracer = Multi(nil)
