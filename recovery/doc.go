// Package recovery provides a high-level API for talking to Apple devices in
// recovery mode.
//
// # Overview
//
// A Session wraps one device and exposes the iBoot recovery protocol:
//   - Connecting with a bounded number of open attempts
//   - Sending commands and reading console output
//   - Reading, writing and persisting environment variables
//   - Uploading payloads to the device's load area
//   - Raw control transfers and USB reset
//
// # Basic Usage
//
//	host := libusb.DefaultHost()
//	defer host.Close()
//
//	sess := recovery.New(host)
//	defer sess.Close()
//
//	if _, err := sess.Connect(ctx, recovery.DefaultRetries); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := sess.SendCommand(ctx, "printenv"); err != nil {
//	    log.Fatal(err)
//	}
//	out, err := sess.Receive(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(out)
//
// # Uploading Payloads
//
//	sess := recovery.New(host,
//	    recovery.WithProgressCallback(func(p recovery.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
//
//	img, _ := os.ReadFile("iBEC.img3")
//	if err := sess.SendFile(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
//	err = sess.SendCommand(ctx, "go")
//
// # Configuration Options
//
//	sess := recovery.New(host,
//	    recovery.WithSelector(sel),
//	    recovery.WithLogger(slog.Default()),
//	    recovery.WithRetryDelay(500*time.Millisecond),
//	    recovery.WithTimeout(30*time.Second),
//	    recovery.WithChunkSize(0x4000),
//	)
//
// # Error Handling
//
// Every operation that needs a device fails with ErrNotConnected on a
// disconnected session without touching the bus. Other failures are
// reported with structured error types that wrap the transport error:
//   - ConnectionFailedError: no open attempt succeeded
//   - CommandFailedError: a command, saveenv or reset failed
//   - EnvReadFailedError / EnvWriteFailedError: env access failed
//   - TransferFailedError: an upload did not complete
//   - ControlTransferFailedError: a raw control transfer was short or failed
//
// # Hardware Independence
//
// The session talks to the bus through usb.Opener and usb.Transport. The
// libusb package provides the real backend; usbtest provides a simulated
// device for tests.
package recovery
