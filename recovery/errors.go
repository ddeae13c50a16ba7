package recovery

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by every operation that needs an open
	// device when the session is disconnected. No I/O is performed.
	ErrNotConnected = errors.New("recovery: not connected")

	// ErrAlreadyConnected is returned by Connect on a connected session.
	ErrAlreadyConnected = errors.New("recovery: already connected")

	// ErrNotImplemented is returned by GetInfo for every key.
	ErrNotImplemented = errors.New("recovery: not implemented")

	// ErrInvalidRetries is wrapped by the ConnectionFailedError Connect
	// returns for a retry count below 1.
	ErrInvalidRetries = errors.New("recovery: retries must be at least 1")
)

// ConnectionFailedError indicates that no open attempt succeeded.
type ConnectionFailedError struct {
	Attempts int
	Err      error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("unable to connect after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error { return e.Err }

// CommandFailedError indicates that a command was not accepted by the device.
// SaveEnv and Reset failures are reported with Command set to "saveenv" and
// "reset".
type CommandFailedError struct {
	Command string
	Err     error
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

func (e *CommandFailedError) Unwrap() error { return e.Err }

// EnvReadFailedError indicates that an environment variable could not be read.
type EnvReadFailedError struct {
	Name string
	Err  error
}

func (e *EnvReadFailedError) Error() string {
	return fmt.Sprintf("getenv %s failed: %v", e.Name, e.Err)
}

func (e *EnvReadFailedError) Unwrap() error { return e.Err }

// EnvWriteFailedError indicates that an environment variable could not be set.
type EnvWriteFailedError struct {
	Name string
	Err  error
}

func (e *EnvWriteFailedError) Error() string {
	return fmt.Sprintf("setenv %s failed: %v", e.Name, e.Err)
}

func (e *EnvWriteFailedError) Unwrap() error { return e.Err }

// TransferFailedError indicates that a payload upload did not complete.
type TransferFailedError struct {
	// Length is the payload length
	Length int

	// Sent is the number of bytes the device accepted before the failure
	Sent int

	Err error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("upload failed after %d of %d bytes: %v", e.Sent, e.Length, e.Err)
}

func (e *TransferFailedError) Unwrap() error { return e.Err }

// ControlTransferFailedError indicates that a raw control transfer moved a
// different number of bytes than requested, or failed outright.
type ControlTransferFailedError struct {
	Expected int
	Actual   int
	Err      error
}

func (e *ControlTransferFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("control transfer failed: expected %d bytes, transferred %d: %v",
			e.Expected, e.Actual, e.Err)
	}
	return fmt.Sprintf("control transfer failed: expected %d bytes, transferred %d",
		e.Expected, e.Actual)
}

func (e *ControlTransferFailedError) Unwrap() error { return e.Err }

// errShortTransfer marks a control transfer that moved fewer bytes than
// requested without a transport error.
var errShortTransfer = errors.New("short transfer")
