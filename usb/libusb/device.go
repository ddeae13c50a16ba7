package libusb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/moffa90/go-irecovery/protocol"
	"github.com/moffa90/go-irecovery/usb"
)

// device is a claimed recovery-mode device.
type device struct {
	dev    *gousb.Device
	cfg    *gousb.Config
	intfs  []*gousb.Interface
	in     map[int]*gousb.InEndpoint
	out    map[int]*gousb.OutEndpoint
	closed bool
}

// openDevice claims configuration 1, the control interface and, when the
// device exposes it, the bulk interface. dev is closed on failure.
func openDevice(dev *gousb.Device) (*device, error) {
	// Not supported on every platform; claiming reports the real failure.
	_ = dev.SetAutoDetach(true)

	cfg, err := dev.Config(protocol.Configuration)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("set configuration %d: %w", protocol.Configuration, mapError(err))
	}

	intf, err := cfg.Interface(protocol.ControlInterface, protocol.ControlInterfaceAlt)
	if err != nil {
		_ = cfg.Close()
		_ = dev.Close()
		return nil, fmt.Errorf("claim interface %d: %w", protocol.ControlInterface, mapError(err))
	}

	d := &device{
		dev:   dev,
		cfg:   cfg,
		intfs: []*gousb.Interface{intf},
		in:    make(map[int]*gousb.InEndpoint),
		out:   make(map[int]*gousb.OutEndpoint),
	}

	// Recovery modes 1 and 2 have no second interface.
	if bulk, err := cfg.Interface(protocol.BulkInterface, protocol.BulkInterfaceAlt); err == nil {
		d.intfs = append(d.intfs, bulk)
	}

	return d, nil
}

func (d *device) BulkTransfer(ctx context.Context, endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	if d.closed {
		return 0, usb.ErrClosed
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	num := int(endpoint & 0x0f)
	if endpoint&0x80 != 0 {
		ep, err := d.inEndpoint(num)
		if err != nil {
			return 0, err
		}
		n, err := ep.ReadContext(ctx, buf)
		return n, mapTransferError(ctx, err)
	}

	ep, err := d.outEndpoint(num)
	if err != nil {
		return 0, err
	}
	n, err := ep.WriteContext(ctx, buf)
	return n, mapTransferError(ctx, err)
}

func (d *device) ControlTransfer(ctx context.Context, requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	if d.closed {
		return 0, usb.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.dev.ControlTimeout = timeout
	n, err := d.dev.Control(requestType, request, value, index, data)
	if err != nil {
		return n, mapError(err)
	}
	return n, nil
}

func (d *device) Reset() error {
	if d.closed {
		return usb.ErrClosed
	}
	if err := d.dev.Reset(); err != nil {
		return mapError(err)
	}
	return nil
}

func (d *device) SerialNumber() (string, error) {
	if d.closed {
		return "", usb.ErrClosed
	}
	s, err := d.dev.SerialNumber()
	if err != nil {
		return "", mapError(err)
	}
	return s, nil
}

func (d *device) Close() error {
	if d.closed {
		return usb.ErrClosed
	}
	d.closed = true

	for i := len(d.intfs) - 1; i >= 0; i-- {
		d.intfs[i].Close()
	}
	var errs []error
	if err := d.cfg.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close configuration: %w", err))
	}
	if err := d.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	return errors.Join(errs...)
}

func (d *device) inEndpoint(num int) (*gousb.InEndpoint, error) {
	if ep, ok := d.in[num]; ok {
		return ep, nil
	}
	for _, intf := range d.intfs {
		if ep, err := intf.InEndpoint(num); err == nil {
			d.in[num] = ep
			return ep, nil
		}
	}
	return nil, fmt.Errorf("IN endpoint 0x%02x not found on claimed interfaces", 0x80|num)
}

func (d *device) outEndpoint(num int) (*gousb.OutEndpoint, error) {
	if ep, ok := d.out[num]; ok {
		return ep, nil
	}
	for _, intf := range d.intfs {
		if ep, err := intf.OutEndpoint(num); err == nil {
			d.out[num] = ep
			return ep, nil
		}
	}
	return nil, fmt.Errorf("OUT endpoint 0x%02x not found on claimed interfaces", num)
}

var _ usb.Transport = (*device)(nil)
