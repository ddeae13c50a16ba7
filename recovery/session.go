package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jpillora/backoff"

	"github.com/moffa90/go-irecovery/protocol"
	"github.com/moffa90/go-irecovery/usb"
)

// Session is a connection to one device in recovery mode.
// It owns the device transport exclusively.
//
// A Session is not safe for concurrent use; callers must serialize access.
type Session struct {
	opener    usb.Opener
	config    Config
	transport usb.Transport
	connected bool
}

// New creates a disconnected Session that opens devices through opener.
//
// Example:
//
//	host := libusb.DefaultHost()
//	defer host.Close()
//
//	sess := recovery.New(host, recovery.WithLogger(slog.Default()))
//	defer sess.Close()
func New(opener usb.Opener, opts ...Option) *Session {
	if opener == nil {
		panic("opener cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		opener: opener,
		config: cfg,
	}
}

// Connected reports whether the session holds an open device.
func (s *Session) Connected() bool {
	return s.connected
}

// Connect opens the device, making up to retries attempts with a fixed
// pause between them. retries must be at least 1; a smaller count fails
// with zero attempts and no device I/O.
//
// On success it returns the number of attempts made. A connected session
// returns (0, ErrAlreadyConnected). When every attempt fails it returns a
// *ConnectionFailedError and the session stays disconnected.
//
// Example:
//
//	attempts, err := sess.Connect(ctx, recovery.DefaultRetries)
func (s *Session) Connect(ctx context.Context, retries int) (int, error) {
	if s.connected {
		return 0, ErrAlreadyConnected
	}
	if retries < 1 {
		return 0, &ConnectionFailedError{Attempts: 0, Err: ErrInvalidRetries}
	}

	b := &backoff.Backoff{
		Min:    s.config.RetryDelay,
		Max:    s.config.RetryDelay,
		Factor: 1,
	}

	attempts := 0
	var lastErr error
	for attempts < retries {
		attempts++

		t, err := s.opener.Open(ctx, s.config.Selector)
		if err == nil {
			s.transport = t
			s.connected = true
			s.logInfo("connected", "attempts", attempts, "selector", s.config.Selector.String())
			return attempts, nil
		}
		lastErr = err
		s.logDebug("open failed", "attempt", attempts, "retries", retries, "error", err)

		if attempts == retries {
			break
		}
		if err := s.sleep(ctx, b); err != nil {
			return attempts, &ConnectionFailedError{Attempts: attempts, Err: err}
		}
	}

	s.logError("unable to connect", "attempts", attempts, "error", lastErr)
	return attempts, &ConnectionFailedError{Attempts: attempts, Err: lastErr}
}

// sleep waits for the next retry slot or until ctx is done.
func (s *Session) sleep(ctx context.Context, b *backoff.Backoff) error {
	// backoff substitutes its own default for a zero minimum.
	if s.config.RetryDelay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(b.Duration())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Disconnect releases the device. It is a no-op on a disconnected session.
// The session is marked disconnected even when closing the device fails.
func (s *Session) Disconnect() error {
	if !s.connected {
		return nil
	}

	t := s.transport
	s.transport = nil
	s.connected = false

	if err := t.Close(); err != nil {
		s.logError("close failed", "error", err)
		return fmt.Errorf("close device: %w", err)
	}
	s.logInfo("disconnected")
	return nil
}

// Close tears the session down, releasing the device if still connected.
// It is safe to defer right after New.
func (s *Session) Close() error {
	return s.Disconnect()
}

// SendCommand sends text to iBoot as a single command.
// The text is sent verbatim; iBoot's reply, if any, is read with Receive.
//
// Example:
//
//	if err := sess.SendCommand(ctx, "bgcolor 0 0 255"); err != nil {
//	    return err
//	}
func (s *Session) SendCommand(ctx context.Context, text string) error {
	if !s.connected {
		return ErrNotConnected
	}
	if err := s.sendCommand(ctx, text); err != nil {
		return &CommandFailedError{Command: text, Err: err}
	}
	return nil
}

// sendCommand frames and sends a command over the control pipe.
func (s *Session) sendCommand(ctx context.Context, text string) error {
	frame := protocol.BuildCommand(text)
	n, err := s.transport.ControlTransfer(ctx,
		protocol.RequestTypeCommand, protocol.RequestDefault, 0, 0, frame, s.config.Timeout)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("%w: sent %d of %d bytes", errShortTransfer, n, len(frame))
	}

	s.logDebug("command sent", "command", text)
	return nil
}

// Receive collects iBoot console output.
//
// It polls the console endpoint with a short timeout and returns once a poll
// yields no data. An empty result is valid: it means the device had nothing
// more to say for now. A poll that times out is not an error. Any other
// transport error ends the loop and is returned together with the bytes
// collected so far. Cancelling ctx stops polling.
func (s *Session) Receive(ctx context.Context) ([]byte, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}

	buf := make([]byte, s.config.ReceiveBufferSize)
	var out []byte
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		n, err := s.transport.BulkTransfer(ctx, protocol.EndpointShellIn, buf, s.config.ReceiveTimeout)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if usb.IsTimeout(err) {
				break
			}
			s.logError("receive failed", "received", len(out), "error", err)
			return out, fmt.Errorf("receive: %w", err)
		}
		if n == 0 {
			break
		}
	}

	s.logDebug("received", "bytes", len(out))
	return out, nil
}

// GetEnv reads an environment variable from iBoot.
//
// Example:
//
//	version, err := sess.GetEnv(ctx, "build-version")
func (s *Session) GetEnv(ctx context.Context, name string) (string, error) {
	if !s.connected {
		return "", ErrNotConnected
	}

	if err := s.sendCommand(ctx, protocol.GetEnvCommand(name)); err != nil {
		return "", &EnvReadFailedError{Name: name, Err: err}
	}

	buf := make([]byte, protocol.EnvBufferSize)
	n, err := s.transport.ControlTransfer(ctx,
		protocol.RequestTypeEnvRead, protocol.RequestDefault, 0, 0, buf, s.config.Timeout)
	if err != nil {
		return "", &EnvReadFailedError{Name: name, Err: err}
	}

	value := protocol.ParseEnvResponse(buf[:n])
	s.logDebug("getenv", "name", name, "value", value)
	return value, nil
}

// SetEnv assigns an environment variable. The change lives in RAM until
// SaveEnv is called.
func (s *Session) SetEnv(ctx context.Context, name, value string) error {
	if !s.connected {
		return ErrNotConnected
	}
	if err := s.sendCommand(ctx, protocol.SetEnvCommand(name, value)); err != nil {
		return &EnvWriteFailedError{Name: name, Err: err}
	}
	return nil
}

// SaveEnv persists the environment to NVRAM. Failures are reported as a
// *CommandFailedError for the "saveenv" command.
func (s *Session) SaveEnv(ctx context.Context) error {
	return s.SendCommand(ctx, protocol.CommandSaveEnv)
}

// Reset issues a USB reset of the device. Failures are reported as a
// *CommandFailedError with Command "reset". The session stays connected;
// the device usually re-enumerates, so callers typically Disconnect and
// Connect again afterwards.
func (s *Session) Reset(ctx context.Context) error {
	if !s.connected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.transport.Reset(); err != nil {
		return &CommandFailedError{Command: "reset", Err: err}
	}
	s.logInfo("device reset")
	return nil
}

// GetInfo is reserved for querying device information by key. No key is
// supported yet: it returns an error wrapping ErrNotImplemented for every
// key. DeviceInfo reports the identification fields that are available.
func (s *Session) GetInfo(ctx context.Context, key string) (string, error) {
	if !s.connected {
		return "", ErrNotConnected
	}
	return "", fmt.Errorf("getinfo %s: %w", key, ErrNotImplemented)
}

// DeviceInfo returns the identification fields from the device's USB
// serial-number string.
func (s *Session) DeviceInfo(ctx context.Context) (*protocol.DeviceInfo, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	serial, err := s.transport.SerialNumber()
	if err != nil {
		return nil, fmt.Errorf("read serial number: %w", err)
	}
	info, err := protocol.ParseSerialString(serial)
	if protocol.IsParseError(err) {
		s.logError("unparseable serial number", "serial", serial, "error", err)
	}
	return info, err
}

// SendFile uploads data to the device's load area. The exact length of data
// is sent; chunking is internal.
//
// Example:
//
//	img, _ := os.ReadFile("iBEC.img3")
//	if err := sess.SendFile(ctx, img); err != nil {
//	    return err
//	}
//	err = sess.SendCommand(ctx, "go")
func (s *Session) SendFile(ctx context.Context, data []byte) error {
	if !s.connected {
		return ErrNotConnected
	}

	start := time.Now()
	total := len(data)

	s.reportProgress(Progress{
		Phase:      PhasePreparing,
		TotalBytes: total,
	})

	if _, err := s.transport.ControlTransfer(ctx,
		protocol.RequestTypeUpload, protocol.RequestDefault, 0, 0, nil, s.config.Timeout); err != nil {
		return &TransferFailedError{Length: total, Err: fmt.Errorf("prepare upload: %w", err)}
	}

	sent := 0
	for sent < total {
		if err := ctx.Err(); err != nil {
			return &TransferFailedError{Length: total, Sent: sent, Err: err}
		}

		chunk := data[sent:min(sent+s.config.ChunkSize, total)]
		n, err := s.transport.BulkTransfer(ctx, protocol.EndpointUploadOut, chunk, s.config.Timeout)
		sent += n
		if err != nil {
			return &TransferFailedError{Length: total, Sent: sent, Err: err}
		}
		if n != len(chunk) {
			return &TransferFailedError{
				Length: total,
				Sent:   sent,
				Err:    fmt.Errorf("%w: wrote %d of %d bytes", errShortTransfer, n, len(chunk)),
			}
		}

		s.reportProgress(Progress{
			Phase:       PhaseSending,
			BytesSent:   sent,
			TotalBytes:  total,
			Percentage:  float64(sent) / float64(total) * 100,
			ElapsedTime: time.Since(start),
		})
	}

	s.reportProgress(Progress{
		Phase:       PhaseComplete,
		BytesSent:   sent,
		TotalBytes:  total,
		Percentage:  100,
		ElapsedTime: time.Since(start),
	})

	s.logInfo("upload complete",
		"size", humanize.Bytes(uint64(total)),
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// ControlRequest describes a raw control transfer.
// Zero values match the defaults of the original tool: value 0, index 0, no
// data, no timeout.
type ControlRequest struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16

	// Data is sent for OUT requests and filled for IN requests
	Data []byte

	// Timeout of zero waits forever
	Timeout time.Duration
}

// ControlTransfer performs a raw control transfer. A transfer that moves a
// different number of bytes than len(req.Data) fails with a
// *ControlTransferFailedError.
//
// Example:
//
//	// Ask iBoot to jump to the uploaded image.
//	_, err := sess.ControlTransfer(ctx, recovery.ControlRequest{
//	    RequestType: 0x21,
//	    Request:     2,
//	})
func (s *Session) ControlTransfer(ctx context.Context, req ControlRequest) (int, error) {
	if !s.connected {
		return 0, ErrNotConnected
	}

	n, err := s.transport.ControlTransfer(ctx, req.RequestType, req.Request, req.Value, req.Index, req.Data, req.Timeout)
	if err != nil || n != len(req.Data) {
		return n, &ControlTransferFailedError{Expected: len(req.Data), Actual: n, Err: err}
	}
	return n, nil
}

// reportProgress calls the progress callback if configured.
func (s *Session) reportProgress(progress Progress) {
	if s.config.ProgressCallback != nil {
		s.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
