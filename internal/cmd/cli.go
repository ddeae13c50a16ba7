// Package cmd implements the irecovery subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/moffa90/go-irecovery/internal/log"
	"github.com/moffa90/go-irecovery/recovery"
	"github.com/moffa90/go-irecovery/trace"
	"github.com/moffa90/go-irecovery/usb"
)

// CLI is the root command line.
type CLI struct {
	Config string `help:"Configuration file (json, yaml or toml)" type:"path" env:"IRECOVERY_CONFIG"`

	Log    LogOptions    `embed:"" prefix:"log."`
	Device DeviceOptions `embed:""`

	Command CommandCmd    `cmd:"" help:"Send a command and print the response"`
	Shell   ShellCmd      `cmd:"" help:"Start an interactive recovery shell"`
	Exec    ExecCmd       `cmd:"" help:"Execute a recovery shell script"`
	Send    SendCmd       `cmd:"" help:"Upload a file to the device"`
	Reset   ResetCmd      `cmd:"" help:"Reset the device"`
	Getenv  GetenvCmd     `cmd:"" help:"Print an environment variable"`
	Setenv  SetenvCmd     `cmd:"" help:"Set an environment variable"`
	Saveenv SaveenvCmd    `cmd:"" help:"Persist the environment to NVRAM"`
	Info    InfoCmd       `cmd:"" help:"Print device information"`
	Control ControlCmd    `cmd:"" help:"Perform a raw control transfer"`
	Trace   TraceCmd      `cmd:"" help:"Dump a recorded USB trace"`
	Cfg     ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}

// LogOptions configures logging.
type LogOptions struct {
	Level string `help:"Log level; trace also dumps USB transfers" enum:"trace,debug,info,warn,error" default:"info" env:"IRECOVERY_LOG_LEVEL"`
	File  string `help:"Write logs to this file as well" type:"path" env:"IRECOVERY_LOG_FILE"`
}

// DeviceOptions selects the device and tunes the connection.
type DeviceOptions struct {
	ECID       string        `help:"Only open the device with this ECID (hex)" env:"IRECOVERY_ECID"`
	Retries    int           `help:"Open attempts before giving up" default:"5" env:"IRECOVERY_RETRIES"`
	RetryDelay time.Duration `help:"Pause between open attempts" default:"1s" env:"IRECOVERY_RETRY_DELAY"`
	Timeout    time.Duration `help:"USB transfer timeout" default:"10s" env:"IRECOVERY_TIMEOUT"`
	TraceFile  string        `help:"Record USB transfers to this CBOR file" type:"path" env:"IRECOVERY_TRACE_FILE"`
	USBDebug   int           `name:"usb-debug" help:"libusb debug level (0-4)" default:"0" env:"IRECOVERY_USB_DEBUG"`
}

// Selector returns the device selector for the options.
func (d DeviceOptions) Selector() (usb.Selector, error) {
	sel := usb.DefaultSelector()
	if d.ECID == "" {
		return sel, nil
	}

	ecid, err := parseUint(d.ECID, 16, 64)
	if err != nil {
		return sel, fmt.Errorf("invalid ECID %q: %w", d.ECID, err)
	}
	sel.ECID = ecid
	return sel, nil
}

// Env carries what subcommands need from main.
type Env struct {
	Ctx    context.Context
	Opener usb.Opener
	Device DeviceOptions
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// session is a connected recovery session plus the trace sinks tied to it.
type session struct {
	*recovery.Session
	closers []io.Closer
}

func (s *session) Close() error {
	errs := []error{s.Session.Close()}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// connect opens the selected device. Transfers are recorded to the trace file
// when one is configured and dumped to stderr at trace log level.
func (e *Env) connect(logger *slog.Logger, opts ...recovery.Option) (*session, error) {
	sel, err := e.Device.Selector()
	if err != nil {
		return nil, err
	}

	var tracers trace.Multi
	var closers []io.Closer
	if e.Device.TraceFile != "" {
		ft, err := trace.NewFileTracer(e.Device.TraceFile)
		if err != nil {
			return nil, err
		}
		tracers = append(tracers, ft)
		closers = append(closers, ft)
	}
	if logger.Enabled(e.Ctx, log.LevelTrace) {
		tracers = append(tracers, trace.NewHexTracer(e.Stderr))
	}

	opener := e.Opener
	if len(tracers) > 0 {
		opener = usb.TracedOpener(opener, tracers)
	}

	base := []recovery.Option{
		recovery.WithSelector(sel),
		recovery.WithLogger(logger),
		recovery.WithRetryDelay(e.Device.RetryDelay),
		recovery.WithTimeout(e.Device.Timeout),
	}
	sess := recovery.New(opener, append(base, opts...)...)

	if _, err := sess.Connect(e.Ctx, e.Device.Retries); err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}
	return &session{Session: sess, closers: closers}, nil
}

// parseUint accepts an optional 0x prefix.
func parseUint(s string, base, bits int) (uint64, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
		base = 16
	}
	return strconv.ParseUint(s, base, bits)
}
