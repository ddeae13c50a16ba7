// Package usb defines the transport a recovery session talks through.
//
// A Transport is one opened USB device: it moves bytes over bulk and control
// pipes and can reset the device. It performs no retries and knows nothing
// about the recovery protocol. Transfer status is reported through errors:
// ErrTimeout, ErrNoDevice and ErrNotFound can be matched with errors.Is, any
// other error is a device error.
//
// The libusb subpackage provides the real implementation on top of gousb.
// The usbtest subpackage provides a simulated device for tests.
package usb
