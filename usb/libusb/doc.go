// Package libusb implements usb.Opener and usb.Transport on top of gousb.
//
// libusb keeps process-wide state. A Host owns one libusb context: it is
// created on the first Open and released by Close. DefaultHost returns the
// process-wide Host; programs should call DefaultHost().Close() before
// exiting.
//
//	defer libusb.DefaultHost().Close()
//	sess := recovery.New(libusb.DefaultHost())
package libusb
