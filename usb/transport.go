package usb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moffa90/go-irecovery/protocol"
)

// Transfer status errors.
var (
	// ErrTimeout indicates a transfer did not complete before its timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrNoDevice indicates the device has been disconnected.
	ErrNoDevice = errors.New("device not present")

	// ErrNotFound indicates no device matched the selector.
	ErrNotFound = errors.New("no matching device found")

	// ErrClosed indicates the transport has already been closed.
	ErrClosed = errors.New("transport closed")
)

// IsTimeout reports whether err is a transfer timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Transport is an opened USB device.
//
// Endpoint direction is taken from bit 7 of the endpoint address. A zero
// timeout waits forever. A transfer that times out still reports the number
// of bytes moved before the timeout.
//
// A Transport is not safe for concurrent use.
type Transport interface {
	// BulkTransfer reads into or writes from buf on the given bulk endpoint.
	BulkTransfer(ctx context.Context, endpoint uint8, buf []byte, timeout time.Duration) (int, error)

	// ControlTransfer performs a control transfer on endpoint 0. For IN
	// requests data is the receive buffer.
	ControlTransfer(ctx context.Context, requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error)

	// Reset issues a USB port reset.
	Reset() error

	// SerialNumber returns the USB serial-number string descriptor.
	SerialNumber() (string, error)

	// Close releases the device. Further calls fail with ErrClosed.
	Close() error
}

// Opener opens the device described by a Selector.
type Opener interface {
	Open(ctx context.Context, sel Selector) (Transport, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, sel Selector) (Transport, error)

// Open calls f(ctx, sel).
func (f OpenerFunc) Open(ctx context.Context, sel Selector) (Transport, error) {
	return f(ctx, sel)
}

// Selector describes which device to open.
type Selector struct {
	// VendorID is the USB vendor ID to match
	VendorID uint16

	// ProductIDs lists the accepted product IDs; empty accepts any
	// recovery-mode product
	ProductIDs []uint16

	// ECID restricts the match to one chip; zero accepts any
	ECID uint64
}

// DefaultSelector matches any Apple device in recovery mode.
func DefaultSelector() Selector {
	pids := make([]uint16, len(protocol.RecoveryProductIDs))
	copy(pids, protocol.RecoveryProductIDs)
	return Selector{
		VendorID:   protocol.AppleVendorID,
		ProductIDs: pids,
	}
}

// MatchIDs reports whether a device with the given IDs is acceptable.
func (s Selector) MatchIDs(vid, pid uint16) bool {
	if vid != s.VendorID {
		return false
	}
	if len(s.ProductIDs) == 0 {
		return protocol.IsRecoveryProduct(pid)
	}
	for _, p := range s.ProductIDs {
		if p == pid {
			return true
		}
	}
	return false
}

// MatchSerial reports whether a device reporting the given serial-number
// string is acceptable. Without an ECID filter every device matches.
func (s Selector) MatchSerial(serial string) bool {
	if s.ECID == 0 {
		return true
	}
	info, err := protocol.ParseSerialString(serial)
	if err != nil {
		return false
	}
	return info.ECID == s.ECID
}

func (s Selector) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vid=%04x", s.VendorID)
	if len(s.ProductIDs) > 0 {
		b.WriteString(" pid=")
		for i, p := range s.ProductIDs {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%04x", p)
		}
	}
	if s.ECID != 0 {
		fmt.Fprintf(&b, " ecid=%016x", s.ECID)
	}
	return b.String()
}
