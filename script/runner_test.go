package script

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-irecovery/recovery"
	"github.com/moffa90/go-irecovery/usb"
	"github.com/moffa90/go-irecovery/usb/usbtest"
)

func newSession(t *testing.T, dev *usbtest.Device) *recovery.Session {
	t.Helper()
	sess := recovery.New(usbtest.NewOpener(dev), recovery.WithRetryDelay(0))
	_, err := sess.Connect(context.Background(), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func mustParse(t *testing.T, src string) *Script {
	t.Helper()
	sc, err := ParseReader(strings.NewReader(src))
	require.NoError(t, err)
	return sc
}

func TestRun(t *testing.T) {
	dev := usbtest.NewDevice()
	dev.Env["build-version"] = "iBoot-1145.3"
	dev.OnCommand = func(cmd string) []byte {
		if cmd == "printenv" {
			return []byte("auto-boot = true")
		}
		return nil
	}
	sess := newSession(t, dev)

	var out bytes.Buffer
	r := NewRunner(sess, &out, nil)

	sc := mustParse(t, "# demo\n"+
		"getenv build-version\n"+
		"printenv\n"+
		"setenv auto-boot false\n"+
		"exit\n"+
		"reboot\n")

	require.NoError(t, r.Run(context.Background(), sc))

	assert.Equal(t, "iBoot-1145.3\nauto-boot = true\n", out.String())
	assert.Equal(t, []string{"getenv build-version", "printenv", "setenv auto-boot false"}, dev.Commands)
	assert.Equal(t, "false", dev.Env["auto-boot"])
}

func TestRunInfo(t *testing.T) {
	dev := usbtest.NewDevice()
	sess := newSession(t, dev)

	var out bytes.Buffer
	r := NewRunner(sess, &out, nil)

	require.NoError(t, r.Run(context.Background(), mustParse(t, "info\n")))
	assert.Contains(t, out.String(), "CPID: 0x8930")

	err := r.Run(context.Background(), mustParse(t, "info ECID\nreboot\n"))

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.Line)
	assert.ErrorIs(t, err, recovery.ErrNotImplemented)
	assert.Empty(t, dev.Commands, "statements after a failure must not run")
}

func TestRunStopsOnFailure(t *testing.T) {
	dev := usbtest.NewDevice()
	sess := newSession(t, dev)
	dev.CommandErr = usb.ErrNoDevice

	r := NewRunner(sess, nil, nil)
	err := r.Run(context.Background(), mustParse(t, "reboot\ngo\n"))

	var cmdErr *recovery.CommandFailedError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "reboot", cmdErr.Command)
	assert.Contains(t, err.Error(), "line 1")
	assert.Len(t, dev.Controls, 1)
}

func TestRunDisconnected(t *testing.T) {
	sess := recovery.New(usbtest.NewOpener(nil))
	r := NewRunner(sess, nil, nil)

	err := r.Run(context.Background(), mustParse(t, "getenv foo\n"))
	assert.ErrorIs(t, err, recovery.ErrNotConnected)
}

func TestRunCancelled(t *testing.T) {
	dev := usbtest.NewDevice()
	sess := newSession(t, dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRunner(sess, nil, nil).Run(ctx, mustParse(t, "reboot\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dev.IOCount())
}

func TestExecuteExit(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	exit, err := r.Execute(context.Background(), &Statement{Kind: KindExit, Raw: "exit"})
	require.NoError(t, err)
	assert.True(t, exit)
}

func TestExecErrorWithoutLine(t *testing.T) {
	err := &ExecError{Statement: "go", Err: recovery.ErrNotConnected}
	assert.Equal(t, "go: recovery: not connected", err.Error())
}
