// Package usbtest provides a simulated recovery-mode device for tests.
//
// Device models the parts of iBoot the recovery protocol touches: it records
// commands, keeps an environment, answers env reads, buffers uploads and
// replays scripted shell output on the bulk IN endpoint. Failures can be
// injected per operation.
package usbtest

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/moffa90/go-irecovery/protocol"
	"github.com/moffa90/go-irecovery/usb"
)

// Read is one scripted result of a bulk IN transfer.
type Read struct {
	Data []byte
	Err  error
}

// Control is a recorded control transfer.
type Control struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Data        []byte
	Timeout     time.Duration
}

// Device is a simulated recovery-mode device. The zero value is not usable;
// call NewDevice.
type Device struct {
	mu sync.Mutex

	// Serial is returned as the USB serial-number string.
	Serial string

	// Env holds the device environment.
	Env map[string]string

	// Saved is a copy of Env taken by the last "saveenv" command.
	Saved map[string]string

	// Reads are replayed in order on the shell IN endpoint. When empty, reads
	// time out with zero bytes like an idle console.
	Reads []Read

	// OnCommand, if set, returns console output queued after a command.
	OnCommand func(cmd string) []byte

	// ControlFunc, if set, overrides the transferred count and error of
	// control transfers not handled by the recovery protocol.
	ControlFunc func(c Control) (int, error)

	// Injected failures.
	CommandErr  error
	EnvReadErr  error
	UploadErr   error
	BulkOutErr  error
	ResetErr    error
	CloseErr    error
	SerialErr   error
	ShortUpload int // bulk OUT writes report this many bytes when > 0

	// Recorded activity.
	Commands     []string
	Controls     []Control
	Uploaded     bytes.Buffer
	UploadChunks []int
	BulkReads    int
	Resets       int
	Closes       int

	staged      string
	uploadReady bool
}

// NewDevice returns a device with an empty environment and a default
// serial-number string.
func NewDevice() *Device {
	return &Device{
		Serial: "CPID:8930 CPRV:20 CPFM:03 SCEP:01 BDID:00 ECID:000002A1C4D10C8E IBFL:1B SRTG:[iBoot-1145.3]",
		Env:    make(map[string]string),
	}
}

// QueueOutput appends console output chunks to the scripted reads.
func (d *Device) QueueOutput(chunks ...[]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range chunks {
		d.Reads = append(d.Reads, Read{Data: c})
	}
}

// IOCount returns the number of transfers the device has seen.
func (d *Device) IOCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Controls) + d.BulkReads + len(d.UploadChunks) + d.Resets
}

// Opener opens a Device, optionally failing the first attempts.
type Opener struct {
	mu sync.Mutex

	// Device is handed out on every successful Open.
	Device *Device

	// FailFirst makes the first FailFirst attempts fail with Err.
	FailFirst int

	// Err is the error returned by failed attempts; defaults to usb.ErrNotFound.
	Err error

	// Attempts counts Open calls.
	Attempts int

	// Selectors records the selector of each Open call.
	Selectors []usb.Selector
}

// NewOpener returns an Opener for dev.
func NewOpener(dev *Device) *Opener {
	return &Opener{Device: dev}
}

// Open implements usb.Opener.
func (o *Opener) Open(ctx context.Context, sel usb.Selector) (usb.Transport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Attempts++
	o.Selectors = append(o.Selectors, sel)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.Attempts <= o.FailFirst || o.Device == nil {
		if o.Err != nil {
			return nil, o.Err
		}
		return nil, usb.ErrNotFound
	}
	return &transport{dev: o.Device}, nil
}

var _ usb.Opener = (*Opener)(nil)

type transport struct {
	dev    *Device
	closed bool
}

func (t *transport) BulkTransfer(ctx context.Context, endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	if t.closed {
		return 0, usb.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	if endpoint&0x80 != 0 {
		d.BulkReads++
		if len(d.Reads) == 0 {
			return 0, usb.ErrTimeout
		}
		r := d.Reads[0]
		n := copy(buf, r.Data)
		if n < len(r.Data) {
			d.Reads[0].Data = r.Data[n:]
		} else {
			d.Reads = d.Reads[1:]
		}
		return n, r.Err
	}

	d.UploadChunks = append(d.UploadChunks, len(buf))
	if d.BulkOutErr != nil {
		return 0, d.BulkOutErr
	}
	if endpoint != protocol.EndpointUploadOut || !d.uploadReady {
		return 0, usb.ErrNoDevice
	}
	n := len(buf)
	if d.ShortUpload > 0 && d.ShortUpload < n {
		n = d.ShortUpload
	}
	d.Uploaded.Write(buf[:n])
	return n, nil
}

func (t *transport) ControlTransfer(ctx context.Context, requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	if t.closed {
		return 0, usb.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	c := Control{
		RequestType: requestType,
		Request:     request,
		Value:       value,
		Index:       index,
		Data:        append([]byte(nil), data...),
		Timeout:     timeout,
	}
	d.Controls = append(d.Controls, c)

	switch {
	case requestType == protocol.RequestTypeCommand && request == protocol.RequestDefault:
		if d.CommandErr != nil {
			return 0, d.CommandErr
		}
		d.command(protocol.ParseEnvResponse(data))
		return len(data), nil

	case requestType == protocol.RequestTypeEnvRead && request == protocol.RequestDefault:
		if d.EnvReadErr != nil {
			return 0, d.EnvReadErr
		}
		reply := append([]byte(d.staged), 0)
		return copy(data, reply), nil

	case requestType == protocol.RequestTypeUpload && request == protocol.RequestDefault:
		if d.UploadErr != nil {
			return 0, d.UploadErr
		}
		d.uploadReady = true
		return 0, nil
	}

	if d.ControlFunc != nil {
		return d.ControlFunc(c)
	}
	return len(data), nil
}

// command applies the side effects iBoot would have for cmd.
func (d *Device) command(cmd string) {
	d.Commands = append(d.Commands, cmd)

	switch {
	case strings.HasPrefix(cmd, "getenv "):
		d.staged = d.Env[strings.TrimPrefix(cmd, "getenv ")]
	case strings.HasPrefix(cmd, "setenv "):
		name, value, _ := strings.Cut(strings.TrimPrefix(cmd, "setenv "), " ")
		d.Env[name] = value
	case cmd == protocol.CommandSaveEnv:
		d.Saved = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			d.Saved[k] = v
		}
	}

	if d.OnCommand != nil {
		if out := d.OnCommand(cmd); len(out) > 0 {
			d.Reads = append(d.Reads, Read{Data: out})
		}
	}
}

func (t *transport) Reset() error {
	if t.closed {
		return usb.ErrClosed
	}
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Resets++
	return d.ResetErr
}

func (t *transport) SerialNumber() (string, error) {
	if t.closed {
		return "", usb.ErrClosed
	}
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SerialErr != nil {
		return "", d.SerialErr
	}
	return d.Serial, nil
}

func (t *transport) Close() error {
	if t.closed {
		return usb.ErrClosed
	}
	t.closed = true
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closes++
	return d.CloseErr
}
