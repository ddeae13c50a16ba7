package libusb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/moffa90/go-irecovery/usb"
)

// mapError translates libusb errors into the usb status errors, keeping the
// original error in the message.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gousb.ErrorTimeout), errors.Is(err, gousb.TransferTimedOut):
		return fmt.Errorf("%w: %v", usb.ErrTimeout, err)
	case errors.Is(err, gousb.ErrorNoDevice), errors.Is(err, gousb.TransferNoDevice):
		return fmt.Errorf("%w: %v", usb.ErrNoDevice, err)
	default:
		return err
	}
}

// mapTransferError is mapError for context-driven bulk transfers, where
// gousb reports an expired deadline as a cancelled transfer.
func mapTransferError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", usb.ErrTimeout, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return mapError(err)
}
