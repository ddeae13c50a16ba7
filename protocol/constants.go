package protocol

import "time"

// USB identification of devices running iBoot in recovery mode.
const (
	// AppleVendorID is Apple's USB vendor ID.
	AppleVendorID = 0x05AC

	// ProductRecovery1 through ProductRecovery4 are the recovery-mode product IDs.
	ProductRecovery1 = 0x1280
	ProductRecovery2 = 0x1281
	ProductRecovery3 = 0x1282
	ProductRecovery4 = 0x1283

	// ProductWTF and ProductDFU are the pre-iBoot modes. They speak DFU,
	// not the recovery command protocol.
	ProductWTF = 0x1222
	ProductDFU = 0x1227
)

// RecoveryProductIDs lists every product ID that speaks the recovery protocol.
var RecoveryProductIDs = []uint16{
	ProductRecovery1,
	ProductRecovery2,
	ProductRecovery3,
	ProductRecovery4,
}

// IsRecoveryProduct reports whether pid is a recovery-mode product ID.
func IsRecoveryProduct(pid uint16) bool {
	return pid >= ProductRecovery1 && pid <= ProductRecovery4
}

// Control request types (bmRequestType) used by iBoot.
const (
	// RequestTypeCommand sends a command: host-to-device, vendor, device.
	RequestTypeCommand = 0x40

	// RequestTypeEnvRead reads a reply: device-to-host, vendor, device.
	RequestTypeEnvRead = 0xC0

	// RequestTypeUpload prepares a bulk upload: host-to-device, vendor, interface.
	RequestTypeUpload = 0x41
)

// RequestDefault is the bRequest value for every recovery control request.
const RequestDefault = 0x00

// Bulk endpoints.
const (
	// EndpointShellIn carries iBoot console output to the host.
	EndpointShellIn = 0x81

	// EndpointUploadOut carries payload uploads to the device.
	EndpointUploadOut = 0x04
)

// USB configuration and interfaces claimed when opening a device.
const (
	Configuration = 1

	// ControlInterface is claimed for every recovery mode.
	ControlInterface    = 0
	ControlInterfaceAlt = 0

	// BulkInterface carries the bulk endpoints in recovery modes 3 and 4.
	BulkInterface    = 1
	BulkInterfaceAlt = 1
)

// Sizes and timeouts.
const (
	// EnvBufferSize is the size of the env read reply buffer.
	EnvBufferSize = 255

	// ReceiveBufferSize is the buffer size of one shell read.
	ReceiveBufferSize = 1024

	// ReceivePollTimeout bounds a single shell read.
	ReceivePollTimeout = 100 * time.Millisecond

	// UploadChunkSize is the bulk chunk size for payload uploads.
	UploadChunkSize = 0x8000

	// DefaultTimeout is the timeout for command, env and upload transfers.
	DefaultTimeout = 10 * time.Second
)

// CommandSaveEnv persists the environment to NVRAM.
const CommandSaveEnv = "saveenv"
