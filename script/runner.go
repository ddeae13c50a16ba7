package script

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/moffa90/go-irecovery/protocol"
	"github.com/moffa90/go-irecovery/recovery"
)

// Executor is the device surface a script needs.
// *recovery.Session implements it.
type Executor interface {
	SendCommand(ctx context.Context, text string) error
	Receive(ctx context.Context) ([]byte, error)
	GetEnv(ctx context.Context, name string) (string, error)
	GetInfo(ctx context.Context, key string) (string, error)
	DeviceInfo(ctx context.Context) (*protocol.DeviceInfo, error)
}

var _ Executor = (*recovery.Session)(nil)

// ExecError reports a statement that failed on the device.
type ExecError struct {
	Line      int
	Statement string
	Err       error
}

func (e *ExecError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Statement, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Statement, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Runner executes statements against a device and writes their output.
type Runner struct {
	exec   Executor
	out    io.Writer
	logger recovery.Logger
}

// NewRunner creates a Runner. logger may be nil.
//
// Example:
//
//	sc, _ := script.Parse("boot.txt")
//	r := script.NewRunner(sess, os.Stdout, slog.Default())
//	if err := r.Run(ctx, sc); err != nil {
//	    log.Fatal(err)
//	}
func NewRunner(exec Executor, out io.Writer, logger recovery.Logger) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{exec: exec, out: out, logger: logger}
}

// Run executes the statements in order until an exit statement, the end of
// the script or the first failure.
func (r *Runner) Run(ctx context.Context, sc *Script) error {
	for _, stmt := range sc.Statements {
		if err := ctx.Err(); err != nil {
			return err
		}

		exit, err := r.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		if exit {
			r.logDebug("exit", "line", stmt.Line)
			return nil
		}
	}
	return nil
}

// Execute runs one statement. It reports exit == true for an exit statement.
func (r *Runner) Execute(ctx context.Context, stmt *Statement) (exit bool, err error) {
	r.logDebug("execute", "line", stmt.Line, "kind", stmt.Kind.String(), "statement", stmt.Raw)

	switch stmt.Kind {
	case KindExit:
		return true, nil

	case KindGetEnv:
		value, err := r.exec.GetEnv(ctx, stmt.Arg)
		if err != nil {
			return false, r.fail(stmt, err)
		}
		_, err = fmt.Fprintln(r.out, value)
		return false, err

	case KindInfo:
		if stmt.Arg == "" {
			info, err := r.exec.DeviceInfo(ctx)
			if err != nil {
				return false, r.fail(stmt, err)
			}
			_, err = io.WriteString(r.out, info.String())
			return false, err
		}
		value, err := r.exec.GetInfo(ctx, stmt.Arg)
		if err != nil {
			return false, r.fail(stmt, err)
		}
		_, err = fmt.Fprintln(r.out, value)
		return false, err
	}

	if err := r.exec.SendCommand(ctx, stmt.Raw); err != nil {
		return false, r.fail(stmt, err)
	}
	resp, err := r.exec.Receive(ctx)
	if len(resp) > 0 {
		if _, werr := r.out.Write(resp); werr != nil {
			return false, werr
		}
		if !bytes.HasSuffix(resp, []byte("\n")) {
			if _, werr := io.WriteString(r.out, "\n"); werr != nil {
				return false, werr
			}
		}
	}
	if err != nil {
		return false, r.fail(stmt, err)
	}
	return false, nil
}

func (r *Runner) fail(stmt *Statement, err error) error {
	if r.logger != nil {
		r.logger.Error("statement failed", "line", stmt.Line, "statement", stmt.Raw, "error", err)
	}
	return &ExecError{Line: stmt.Line, Statement: stmt.Raw, Err: err}
}

func (r *Runner) logDebug(msg string, keysAndValues ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, keysAndValues...)
	}
}
