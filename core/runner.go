package core

import (
	"context"
	"io"

	"pkt.systems/procstream/schema"
)

// Runner starts child processes and frames their output.
type Runner interface {
	// Start launches cmd and returns immediately. Events from both streams
	// reach handler one at a time.
	Start(ctx context.Context, cmd Command, handler Handler) (Process, error)
	// Run launches cmd and blocks until it exits and both streams end.
	Run(ctx context.Context, cmd Command, handler Handler) (schema.Result, error)
}

// Command describes a child process. Args are passed as is.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is added to the parent environment, replacing duplicate keys.
	Env map[string]string
	// PTY runs the child on a pseudo-terminal. Stdout and stderr then share
	// one stream, reported as stdout.
	PTY   bool
	Stdin io.Reader
}

// Process is a running child.
type Process interface {
	ID() schema.ProcessID
	PID() int
	Name() string
	// Done is closed once the child exited and both streams ended.
	Done() <-chan struct{}
	// Errors reports output handler failures of either stream.
	Errors() <-chan error
	// Wait blocks until Done. When ctx ends first the process group is
	// terminated and the error carries the partial result.
	Wait(ctx context.Context) (schema.Result, error)
	Signal(sig ProcessSignal) error
	Kill() error
	Close() error
}

// ProcessSignal indicates which signal to send to the process.
type ProcessSignal string

const (
	// ProcessSignalHUP requests a hangup signal.
	ProcessSignalHUP ProcessSignal = "HUP"
	// ProcessSignalINT requests an interrupt signal.
	ProcessSignalINT ProcessSignal = "INT"
	// ProcessSignalTERM requests a termination signal.
	ProcessSignalTERM ProcessSignal = "TERM"
	// ProcessSignalKILL requests an immediate kill signal.
	ProcessSignalKILL ProcessSignal = "KILL"
)
