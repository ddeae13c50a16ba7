// Package protocol implements the wire side of the iBoot recovery-mode protocol.
//
// This package knows how commands and environment requests are framed on the
// USB control and bulk pipes. It does not perform any I/O itself.
//
// # Protocol Overview
//
// A device in recovery mode enumerates with Apple's vendor ID (0x05AC) and one
// of the recovery product IDs (0x1280-0x1283). The host talks to iBoot with:
//
//	Command:    CONTROL OUT  bmRequestType=0x40 bRequest=0  data="<text>\x00"
//	Env read:   CONTROL IN   bmRequestType=0xC0 bRequest=0  data=[255]byte
//	Upload:     CONTROL OUT  bmRequestType=0x41 bRequest=0  (no data)
//	            BULK OUT     endpoint 0x04, chunked
//	Shell out:  BULK IN      endpoint 0x81
//
// Environment variables are read by sending "getenv <name>" as a command and
// then issuing the env read request; the reply is a NUL-terminated string.
//
// # Command Builders
//
//	frame := protocol.BuildCommand("bgcolor 255 0 0")
//	frame  = protocol.BuildCommand(protocol.GetEnvCommand("build-version"))
//
// # Device Identification
//
// The USB serial-number string of a recovery-mode device carries the chip
// identification fields, parsed by ParseSerialString:
//
//	info, err := protocol.ParseSerialString(serial)
//	fmt.Printf("CPID=%04X ECID=%016X\n", info.CPID, info.ECID)
package protocol
