package process

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"
)

// ConverseFunc talks to a child over its standard output and input. It
// returns when the conversation is over, usually when stdout reaches EOF.
type ConverseFunc func(ctx context.Context, stdout io.Reader, stdin io.Writer) error

// Converse starts the process described by spec with its standard input
// and output connected to fn. Stderr is captured into the result, Stdout
// is left empty and spec.Stdin is ignored. Timeout handling matches Run.
//
// The returned error reports a start failure or, when the process did not
// time out, the error returned by fn.
func (s *Supervisor) Converse(ctx context.Context, spec Spec, fn ConverseFunc) (*Result, error) {
	grace := spec.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	limit := spec.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, err
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = inR
	cmd.Stdout = outW
	stderr := &cappedBuffer{limit: limit}
	cmd.Stderr = stderr
	cmd.WaitDelay = grace

	name := spec.Name
	if name == "" {
		name = spec.Path
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	proc, err := s.Start(name, cmd)
	// The child holds its own copies of these ends.
	inR.Close()
	outW.Close()
	if err != nil {
		inW.Close()
		outR.Close()
		return nil, err
	}

	fnErr := make(chan error, 1)
	go func() {
		err := fn(ctx, outR, inW)
		inW.Close()
		fnErr <- err
	}()

	res := &Result{}
	var convErr error

	select {
	case convErr = <-fnErr:
		if convErr != nil {
			s.Stop(proc, grace)
			break
		}
		select {
		case <-proc.Done():
		case <-ctx.Done():
			res.TimedOut = true
			res.Killed = s.Stop(proc, grace)
		}
	case <-proc.Done():
		// Let fn drain what the child wrote before it exited.
		select {
		case convErr = <-fnErr:
		case <-time.After(grace):
			outR.Close()
			convErr = <-fnErr
		}
	case <-ctx.Done():
		res.TimedOut = true
		res.Killed = s.Stop(proc, grace)
		outR.Close()
		<-fnErr
	}
	outR.Close()

	res.Duration = proc.Runtime()
	res.ExitCode = proc.ExitCode()
	res.Stderr = stderr.String()
	if res.TimedOut {
		return res, nil
	}
	return res, convErr
}
