package recovery

import "time"

// Progress contains information about an upload in progress.
// Passed to ProgressCallback by SendFile.
type Progress struct {
	// Phase describes the current upload phase:
	//   "preparing" - Announcing the upload to iBoot
	//   "sending"   - Streaming payload chunks
	//   "complete"  - All bytes accepted by the device
	Phase string

	// BytesSent is the number of payload bytes accepted so far
	BytesSent int

	// TotalBytes is the payload length
	TotalBytes int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the upload started
	ElapsedTime time.Duration
}

// Upload phases reported in Progress.Phase.
const (
	PhasePreparing = "preparing"
	PhaseSending   = "sending"
	PhaseComplete  = "complete"
)

// ProgressCallback is called during uploads to report progress.
// Implementations should return quickly to avoid stalling the transfer.
//
// Example:
//
//	sess := recovery.New(host,
//	    recovery.WithProgressCallback(func(p recovery.Progress) {
//	        fmt.Printf("[%s] %d/%d bytes\n", p.Phase, p.BytesSent, p.TotalBytes)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the session.
// *slog.Logger satisfies it directly.
//
// Example with the standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	sess := recovery.New(host, recovery.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
