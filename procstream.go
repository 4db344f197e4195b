// Package procstream turns the output streams of child processes into
// structured events: text segmented at line and progress boundaries,
// cursor-up and erase-line requests, and APC side-channel messages.
package procstream

import (
	"context"
	"io"
	"sync"

	"pkt.systems/procstream/core"
	"pkt.systems/procstream/internal/apc"
	"pkt.systems/procstream/internal/appconfig"
	"pkt.systems/procstream/internal/procexec"
	"pkt.systems/procstream/schema"
)

type (
	// Output is one structured event of a stream.
	Output = schema.Output
	// ApcMessage is an out-of-band message carried in an APC frame.
	ApcMessage = schema.ApcMessage
	// Result describes a finished process run.
	Result = schema.Result
	// ProcessError carries a classified process failure and its partial result.
	ProcessError = schema.ProcessError
	// CallbackError records a panic raised by a handler.
	CallbackError = schema.CallbackError
	// Handler receives the events of one stream in order.
	Handler = core.Handler
	// Command describes a child process.
	Command = core.Command
	// Process is a running child process.
	Process = core.Process
	// Reader turns one byte stream into events.
	Reader = core.Reader
	// ReaderOption configures a Reader.
	ReaderOption = core.ReaderOption
	// Runner starts child processes.
	Runner = procexec.Runner
	// RunnerConfig configures a Runner.
	RunnerConfig = procexec.Config
	// Config is the file and environment backed configuration.
	Config = appconfig.Config
)

// Reader options.
var (
	WithStdErr     = core.WithStdErr
	WithEncoding   = core.WithEncoding
	WithBufferSize = core.WithBufferSize
	WithLogger     = core.WithLogger
)

// NewRunner constructs a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return procexec.New(cfg)
}

// NewRunnerFromConfig constructs a runner from loaded configuration.
func NewRunnerFromConfig(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := cfg.Encoding()
	if err != nil {
		return nil, err
	}
	return procexec.New(procexec.Config{
		Encoding:      enc,
		BufferSize:    cfg.Reader.BufferSize,
		KillGrace:     cfg.KillGrace(),
		TrackChildren: cfg.Process.TrackChildren,
	}), nil
}

// CommandFromConfig builds a command for name and args with the process
// settings of cfg applied.
func CommandFromConfig(cfg Config, name string, args ...string) Command {
	return Command{
		Name: name,
		Args: args,
		Dir:  cfg.Process.Dir,
		Env:  cfg.EnvMap(),
		PTY:  cfg.Process.PTY,
	}
}

// NewReader prepares a reader of src. Nothing is read until Start.
func NewReader(src io.Reader, handler Handler, opts ...ReaderOption) *Reader {
	return core.NewReader(src, handler, opts...)
}

// ReadStream reads src to its end and delivers every event, including the
// EOF sentinel, to handler. It returns the handler failure, if any, or the
// context error when ctx ends first. handler is not called after ReadStream
// returns; events still buffered at that point are dropped.
func ReadStream(ctx context.Context, src io.Reader, handler Handler, opts ...ReaderOption) error {
	var (
		mu      sync.Mutex
		stopped bool
	)
	gated := func(out Output) {
		mu.Lock()
		defer mu.Unlock()
		if stopped || handler == nil {
			return
		}
		handler(out)
	}
	reader := core.NewReader(src, gated, opts...)
	if err := reader.Start(ctx); err != nil {
		return err
	}
	err := reader.Wait(ctx)
	if ctx.Err() != nil {
		reader.Cancel()
		// Waits out a handler call in progress.
		mu.Lock()
		stopped = true
		mu.Unlock()
	}
	return err
}

// FormatApc renders msg as an APC frame a child process can print.
func FormatApc(msg ApcMessage) (string, error) {
	return apc.Format(msg)
}
