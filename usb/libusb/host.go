package libusb

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/moffa90/go-irecovery/usb"
)

// Host owns a libusb context and opens recovery-mode devices through it.
// Host is safe for concurrent use.
type Host struct {
	mu    sync.Mutex
	ctx   *gousb.Context
	debug int
}

var defaultHost = NewHost()

// DefaultHost returns the process-wide Host.
func DefaultHost() *Host {
	return defaultHost
}

// NewHost returns a Host. The libusb context is created lazily.
func NewHost() *Host {
	return &Host{}
}

// SetDebug sets the libusb debug level (0 disables libusb logging).
func (h *Host) SetDebug(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = level
	if h.ctx != nil {
		h.ctx.Debug(level)
	}
}

// Open enumerates devices, opens the first one matching sel and claims the
// recovery interfaces. It returns usb.ErrNotFound when nothing matches.
func (h *Host) Open(ctx context.Context, sel usb.Selector) (usb.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil {
		h.ctx = gousb.NewContext()
		h.ctx.Debug(h.debug)
	}

	devs, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return sel.MatchIDs(uint16(desc.Vendor), uint16(desc.Product))
	})
	if len(devs) == 0 {
		if err != nil {
			return nil, fmt.Errorf("enumerate devices: %w", mapError(err))
		}
		return nil, usb.ErrNotFound
	}

	var chosen *gousb.Device
	for _, d := range devs {
		if chosen == nil && matchSerial(d, sel) {
			chosen = d
			continue
		}
		_ = d.Close()
	}
	if chosen == nil {
		return nil, usb.ErrNotFound
	}

	d, err := openDevice(chosen)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Close releases the libusb context. Transports opened from this Host must
// be closed first. A later Open creates a new context.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil {
		return nil
	}
	err := h.ctx.Close()
	h.ctx = nil
	return err
}

func matchSerial(d *gousb.Device, sel usb.Selector) bool {
	if sel.ECID == 0 {
		return true
	}
	serial, err := d.SerialNumber()
	if err != nil {
		return false
	}
	return sel.MatchSerial(serial)
}

var _ usb.Opener = (*Host)(nil)
