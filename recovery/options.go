package recovery

import (
	"time"

	"github.com/moffa90/go-irecovery/protocol"
	"github.com/moffa90/go-irecovery/usb"
)

// DefaultRetries is the open attempt count used by the command line and
// examples.
const DefaultRetries = 5

// DefaultRetryDelay is the fixed pause between open attempts.
const DefaultRetryDelay = time.Second

// Config holds the session configuration.
type Config struct {
	// Selector chooses the device to open
	Selector usb.Selector

	// ProgressCallback is called during uploads to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// RetryDelay is the pause between failed open attempts
	RetryDelay time.Duration

	// Timeout is the timeout for command, env and upload transfers
	Timeout time.Duration

	// ReceiveTimeout bounds each poll of the console endpoint
	ReceiveTimeout time.Duration

	// ReceiveBufferSize is the buffer size of each console poll
	ReceiveBufferSize int

	// ChunkSize is the bulk chunk size for uploads
	ChunkSize int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Selector:          usb.DefaultSelector(),
		RetryDelay:        DefaultRetryDelay,
		Timeout:           protocol.DefaultTimeout,
		ReceiveTimeout:    protocol.ReceivePollTimeout,
		ReceiveBufferSize: protocol.ReceiveBufferSize,
		ChunkSize:         protocol.UploadChunkSize,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithSelector sets the device selector.
//
// Example:
//
//	sel := usb.DefaultSelector()
//	sel.ECID = 0x000002A1C4D10C8E
//	sess := recovery.New(host, recovery.WithSelector(sel))
func WithSelector(sel usb.Selector) Option {
	return func(c *Config) {
		c.Selector = sel
	}
}

// WithProgressCallback sets a callback function to track upload progress.
//
// Example:
//
//	sess := recovery.New(host,
//	    recovery.WithProgressCallback(func(p recovery.Progress) {
//	        fmt.Printf("%.1f%% sent\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for session operations. A *slog.Logger satisfies
// Logger.
//
// Example:
//
//	sess := recovery.New(host, recovery.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRetryDelay sets the pause between failed open attempts.
// Negative values are ignored.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.RetryDelay = delay
		}
	}
}

// WithTimeout sets the timeout of command, env and upload transfers.
// Zero waits forever.
//
// Example:
//
//	sess := recovery.New(host, recovery.WithTimeout(30*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.Timeout = timeout
		}
	}
}

// WithReceiveTimeout sets the timeout of a single console poll in Receive.
func WithReceiveTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReceiveTimeout = timeout
		}
	}
}

// WithReceiveBufferSize sets the buffer size of a single console poll.
func WithReceiveBufferSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ReceiveBufferSize = size
		}
	}
}

// WithChunkSize sets the bulk chunk size used by SendFile.
// Default is 0x8000 bytes.
//
// Example:
//
//	sess := recovery.New(host, recovery.WithChunkSize(0x4000))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}
