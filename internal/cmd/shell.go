package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/moffa90/go-irecovery/internal/configpaths"
	"github.com/moffa90/go-irecovery/script"
)

// ExecCmd runs a recovery shell script.
type ExecCmd struct {
	Script string `arg:"" type:"existingfile" help:"Script file"`
}

func (c *ExecCmd) Run(logger *slog.Logger, env *Env) error {
	sc, err := script.Parse(c.Script)
	if err != nil {
		return err
	}

	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	logger.Debug("running script", "file", c.Script, "statements", len(sc.Statements))
	return script.NewRunner(sess, env.Stdout, logger).Run(env.Ctx, sc)
}

// ShellCmd starts an interactive shell.
type ShellCmd struct {
	NoHistory bool `help:"Do not keep a history file"`
}

// lineReader yields one input line per call and io.EOF at the end.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

type scanReader struct {
	s *bufio.Scanner
}

func (r scanReader) Readline() (string, error) {
	if r.s.Scan() {
		return r.s.Text(), nil
	}
	if err := r.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r scanReader) Close() error { return nil }

// input returns readline on a terminal and a plain line scanner otherwise,
// together with the writer output should go to.
func (c *ShellCmd) input(env *Env) (lineReader, io.Writer, error) {
	f, ok := env.Stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return scanReader{s: bufio.NewScanner(env.Stdin)}, env.Stdout, nil
	}

	cfg := &readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}
	if !c.NoHistory {
		if dir, err := configpaths.DefaultConfigDir(); err == nil {
			cfg.HistoryFile = filepath.Join(dir, "history")
			_ = configpaths.EnsureDir(cfg.HistoryFile)
		}
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, rl.Stdout(), nil
}

func (c *ShellCmd) Run(logger *slog.Logger, env *Env) error {
	in, out, err := c.input(env)
	if err != nil {
		return err
	}
	defer in.Close()

	sess, err := env.connect(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Print whatever iBoot has queued, usually its banner.
	if banner, err := sess.Receive(env.Ctx); err == nil && len(banner) > 0 {
		_, _ = out.Write(banner)
	}

	runner := script.NewRunner(sess, out, logger)
	for {
		if err := env.Ctx.Err(); err != nil {
			return nil
		}

		line, err := in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		stmt, ok, err := script.ParseLine(line)
		if err != nil {
			fmt.Fprintln(env.Stderr, err)
			continue
		}
		if !ok {
			continue
		}

		exit, err := runner.Execute(env.Ctx, stmt)
		if err != nil {
			fmt.Fprintln(env.Stderr, err)
			continue
		}
		if exit {
			return nil
		}
	}
}
