package protocol

import (
	"fmt"
	"strings"
)

// DeviceInfo contains the identification fields reported in the USB
// serial-number string of a recovery-mode device.
type DeviceInfo struct {
	// CPID is the chip ID
	CPID uint32

	// CPRV is the chip revision
	CPRV uint32

	// CPFM is the chip fuse mode
	CPFM uint32

	// SCEP is the security epoch
	SCEP uint32

	// BDID is the board ID
	BDID uint32

	// ECID is the unique chip ID
	ECID uint64

	// IBFL holds the iBoot flags
	IBFL uint32

	// SerialNumber is the device serial number (SRNM), if reported
	SerialNumber string

	// Tag is the iBoot build tag (SRTG), if reported
	Tag string
}

// String formats the fields one per line, in the order iBoot reports them.
func (d *DeviceInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CPID: 0x%04x\n", d.CPID)
	fmt.Fprintf(&b, "CPRV: 0x%02x\n", d.CPRV)
	fmt.Fprintf(&b, "CPFM: 0x%02x\n", d.CPFM)
	fmt.Fprintf(&b, "SCEP: 0x%02x\n", d.SCEP)
	fmt.Fprintf(&b, "BDID: 0x%02x\n", d.BDID)
	fmt.Fprintf(&b, "ECID: 0x%016x\n", d.ECID)
	fmt.Fprintf(&b, "IBFL: 0x%02x\n", d.IBFL)
	if d.SerialNumber != "" {
		fmt.Fprintf(&b, "SRNM: %s\n", d.SerialNumber)
	}
	if d.Tag != "" {
		fmt.Fprintf(&b, "SRTG: %s\n", d.Tag)
	}
	return b.String()
}
