package cmd

import (
	"errors"
	"io"

	"github.com/moffa90/go-irecovery/trace"
)

// TraceCmd prints a trace file recorded with --trace-file.
type TraceCmd struct {
	File string `arg:"" type:"existingfile" help:"CBOR trace file"`
}

func (c *TraceCmd) Run(env *Env) error {
	r, err := trace.NewReader(c.File)
	if err != nil {
		return err
	}
	defer r.Close()

	out := trace.NewHexTracer(env.Stdout)
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		out.Trace(event)
	}
}
