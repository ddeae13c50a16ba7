package cmd

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/moffa90/go-irecovery/recovery"
	"github.com/moffa90/go-irecovery/script"
)

// CommandCmd sends a single command.
type CommandCmd struct {
	Text []string `arg:"" help:"Command text; words are joined with spaces"`
}

func (c *CommandCmd) Run(logger *slog.Logger, env *Env) error {
	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	stmt := &script.Statement{Kind: script.KindCommand, Raw: strings.Join(c.Text, " ")}
	_, err = script.NewRunner(sess, env.Stdout, logger).Execute(env.Ctx, stmt)
	return err
}

// SendCmd uploads a file.
type SendCmd struct {
	File      string `arg:"" type:"existingfile" help:"File to upload"`
	ChunkSize int    `help:"Bulk chunk size in bytes" default:"32768"`
	Quiet     bool   `short:"q" help:"Do not print progress"`
}

func (c *SendCmd) Run(logger *slog.Logger, env *Env) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	opts := []recovery.Option{recovery.WithChunkSize(c.ChunkSize)}
	if !c.Quiet {
		opts = append(opts, recovery.WithProgressCallback(func(p recovery.Progress) {
			printProgress(env, p)
		}))
	}

	sess, err := env.connect(logger, opts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	logger.Info("uploading", "file", c.File, "size", humanize.Bytes(uint64(len(data))))
	return sess.SendFile(env.Ctx, data)
}

func printProgress(env *Env, p recovery.Progress) {
	switch p.Phase {
	case recovery.PhaseSending:
		fmt.Fprintf(env.Stderr, "\rSending: %5.1f%% (%s / %s)",
			p.Percentage, humanize.Bytes(uint64(p.BytesSent)), humanize.Bytes(uint64(p.TotalBytes)))
	case recovery.PhaseComplete:
		rate := ""
		if secs := p.ElapsedTime.Seconds(); secs > 0 {
			rate = ", " + humanize.Bytes(uint64(float64(p.BytesSent)/secs)) + "/s"
		}
		fmt.Fprintf(env.Stderr, "\rSent %s in %s%s\n",
			humanize.Bytes(uint64(p.BytesSent)), p.ElapsedTime.Round(time.Millisecond), rate)
	}
}

// ResetCmd issues a USB reset.
type ResetCmd struct{}

func (c *ResetCmd) Run(logger *slog.Logger, env *Env) error {
	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.Reset(env.Ctx)
}

// GetenvCmd prints an environment variable.
type GetenvCmd struct {
	Name string `arg:"" help:"Variable name"`
}

func (c *GetenvCmd) Run(logger *slog.Logger, env *Env) error {
	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	value, err := sess.GetEnv(env.Ctx, c.Name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(env.Stdout, value)
	return err
}

// SetenvCmd sets an environment variable.
type SetenvCmd struct {
	Name  string `arg:"" help:"Variable name"`
	Value string `arg:"" help:"Value"`
	Save  bool   `help:"Persist the environment afterwards"`
}

func (c *SetenvCmd) Run(logger *slog.Logger, env *Env) error {
	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.SetEnv(env.Ctx, c.Name, c.Value); err != nil {
		return err
	}
	if c.Save {
		return sess.SaveEnv(env.Ctx)
	}
	return nil
}

// SaveenvCmd persists the environment.
type SaveenvCmd struct{}

func (c *SaveenvCmd) Run(logger *slog.Logger, env *Env) error {
	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	return sess.SaveEnv(env.Ctx)
}

// InfoCmd prints device information.
type InfoCmd struct {
	Key string `arg:"" optional:"" help:"Info key; omit to print the identification fields"`
}

func (c *InfoCmd) Run(logger *slog.Logger, env *Env) error {
	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	stmt := &script.Statement{Kind: script.KindInfo, Arg: c.Key, Raw: strings.TrimSpace("info " + c.Key)}
	_, err = script.NewRunner(sess, env.Stdout, logger).Execute(env.Ctx, stmt)
	return err
}

// ControlCmd performs a raw control transfer.
type ControlCmd struct {
	RequestType string        `arg:"" name:"type" help:"bmRequestType, e.g. 0x40"`
	Request     string        `arg:"" name:"request" help:"bRequest"`
	Value       string        `help:"wValue" default:"0"`
	Index       string        `help:"wIndex" default:"0"`
	Data        string        `help:"Hex payload for host-to-device requests"`
	Length      int           `help:"Bytes to read for device-to-host requests" default:"0"`
	Wait        time.Duration `help:"Transfer timeout; 0 waits forever" default:"0s"`
}

// request builds the control request from the flags.
func (c *ControlCmd) request() (recovery.ControlRequest, error) {
	var req recovery.ControlRequest

	fields := []struct {
		name string
		in   string
		bits int
		out  func(uint64)
	}{
		{"type", c.RequestType, 8, func(v uint64) { req.RequestType = uint8(v) }},
		{"request", c.Request, 8, func(v uint64) { req.Request = uint8(v) }},
		{"value", c.Value, 16, func(v uint64) { req.Value = uint16(v) }},
		{"index", c.Index, 16, func(v uint64) { req.Index = uint16(v) }},
	}
	for _, f := range fields {
		v, err := parseUint(f.in, 10, f.bits)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q: %w", f.name, f.in, err)
		}
		f.out(v)
	}

	if c.Length < 0 {
		return req, fmt.Errorf("invalid --length %d", c.Length)
	}

	if req.RequestType&0x80 != 0 {
		if c.Data != "" {
			return req, fmt.Errorf("--data is only valid for host-to-device requests")
		}
		req.Data = make([]byte, c.Length)
	} else if c.Data != "" {
		data, err := hex.DecodeString(strings.ReplaceAll(c.Data, " ", ""))
		if err != nil {
			return req, fmt.Errorf("invalid --data: %w", err)
		}
		req.Data = data
	}
	req.Timeout = c.Wait
	return req, nil
}

func (c *ControlCmd) Run(logger *slog.Logger, env *Env) error {
	req, err := c.request()
	if err != nil {
		return err
	}

	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	n, err := sess.ControlTransfer(env.Ctx, req)
	if err != nil {
		return err
	}

	if req.RequestType&0x80 != 0 && n > 0 {
		_, err = fmt.Fprint(env.Stdout, hex.Dump(req.Data[:n]))
		return err
	}
	logger.Info("control transfer complete", "bytes", n)
	return nil
}
