package usb_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-irecovery/protocol"
	"github.com/moffa90/go-irecovery/trace"
	"github.com/moffa90/go-irecovery/usb"
	"github.com/moffa90/go-irecovery/usb/usbtest"
)

func TestDefaultSelector(t *testing.T) {
	sel := usb.DefaultSelector()

	assert.True(t, sel.MatchIDs(protocol.AppleVendorID, protocol.ProductRecovery1))
	assert.True(t, sel.MatchIDs(protocol.AppleVendorID, protocol.ProductRecovery4))
	assert.False(t, sel.MatchIDs(protocol.AppleVendorID, protocol.ProductDFU))
	assert.False(t, sel.MatchIDs(0x18D1, protocol.ProductRecovery1))
	assert.Equal(t, "vid=05ac pid=1280,1281,1282,1283", sel.String())

	// The default list is a copy.
	sel.ProductIDs[0] = 0
	assert.Equal(t, uint16(protocol.ProductRecovery1), usb.DefaultSelector().ProductIDs[0])
}

func TestSelectorEmptyProductList(t *testing.T) {
	sel := usb.Selector{VendorID: protocol.AppleVendorID}
	assert.True(t, sel.MatchIDs(protocol.AppleVendorID, protocol.ProductRecovery2))
	assert.False(t, sel.MatchIDs(protocol.AppleVendorID, protocol.ProductDFU))
	assert.False(t, sel.MatchIDs(protocol.AppleVendorID, 0x1234))
}

func TestSelectorMatchSerial(t *testing.T) {
	serial := "CPID:8930 ECID:000002A1C4D10C8E"

	assert.True(t, usb.Selector{}.MatchSerial(serial))
	assert.True(t, usb.Selector{ECID: 0x2A1C4D10C8E}.MatchSerial(serial))
	assert.False(t, usb.Selector{ECID: 0x1}.MatchSerial(serial))
	assert.False(t, usb.Selector{ECID: 0x1}.MatchSerial("garbage"))
	assert.Contains(t, usb.Selector{VendorID: 1, ECID: 0xAB}.String(), "ecid=00000000000000ab")
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, usb.IsTimeout(usb.ErrTimeout))
	assert.True(t, usb.IsTimeout(fmt.Errorf("bulk read: %w", usb.ErrTimeout)))
	assert.False(t, usb.IsTimeout(usb.ErrNoDevice))
	assert.False(t, usb.IsTimeout(nil))
}

type recorder struct{ events []trace.Event }

func (r *recorder) Trace(ev trace.Event) {
	ev.Data = append([]byte(nil), ev.Data...)
	r.events = append(r.events, ev)
}

func TestTracedOpener(t *testing.T) {
	ctx := context.Background()
	dev := usbtest.NewDevice()
	dev.QueueOutput([]byte("ok"))
	rec := &recorder{}

	opener := usb.TracedOpener(usbtest.NewOpener(dev), rec)
	tr, err := opener.Open(ctx, usb.DefaultSelector())
	require.NoError(t, err)

	_, err = tr.ControlTransfer(ctx, protocol.RequestTypeCommand, 0, 0, 0, protocol.BuildCommand("help"), time.Second)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := tr.BulkTransfer(ctx, protocol.EndpointShellIn, buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = tr.BulkTransfer(ctx, protocol.EndpointShellIn, buf, 100*time.Millisecond)
	assert.ErrorIs(t, err, usb.ErrTimeout)

	require.NoError(t, tr.Reset())
	require.NoError(t, tr.Close())

	require.Len(t, rec.events, 6)
	kinds := make([]trace.Kind, len(rec.events))
	for i, ev := range rec.events {
		kinds[i] = ev.Kind
		assert.Equal(t, rec.events[0].SessionID, ev.SessionID)
	}
	assert.Equal(t, []trace.Kind{
		trace.KindOpen, trace.KindControl, trace.KindBulk, trace.KindBulk, trace.KindReset, trace.KindClose,
	}, kinds)
	assert.NotEmpty(t, rec.events[0].SessionID)

	ctl := rec.events[1]
	require.NotNil(t, ctl.Setup)
	assert.Equal(t, uint8(protocol.RequestTypeCommand), ctl.Setup.RequestType)
	assert.Equal(t, trace.DirectionOut, ctl.Direction)
	assert.Equal(t, []byte("help\x00"), ctl.Data)

	in := rec.events[2]
	assert.Equal(t, trace.DirectionIn, in.Direction)
	assert.Equal(t, uint8(protocol.EndpointShellIn), in.Endpoint)
	assert.Equal(t, []byte("ok"), in.Data)
	assert.Equal(t, 16, in.Requested)
	assert.Equal(t, 2, in.Transferred)

	assert.Contains(t, rec.events[3].Error, "timeout")
}

func TestTracedNilTracer(t *testing.T) {
	dev := usbtest.NewDevice()
	opener := usb.TracedOpener(usbtest.NewOpener(dev), nil)

	tr, err := opener.Open(context.Background(), usb.DefaultSelector())
	require.NoError(t, err)
	_, err = tr.ControlTransfer(context.Background(), protocol.RequestTypeCommand, protocol.RequestDefault, 0, 0,
		protocol.BuildCommand("saveenv"), time.Second)
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	assert.Equal(t, []string{"saveenv"}, dev.Commands)
}

func TestTracedOpenerFailure(t *testing.T) {
	rec := &recorder{}
	opener := usb.TracedOpener(usbtest.NewOpener(nil), rec)

	_, err := opener.Open(context.Background(), usb.DefaultSelector())
	require.Error(t, err)
	assert.True(t, errors.Is(err, usb.ErrNotFound))
	require.Len(t, rec.events, 1)
	assert.Equal(t, trace.KindOpen, rec.events[0].Kind)
	assert.NotEmpty(t, rec.events[0].Error)
}
