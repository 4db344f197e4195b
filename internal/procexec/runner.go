// Package procexec runs child processes and frames their output streams.
package procexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	"pkt.systems/procstream/core"
	"pkt.systems/procstream/internal/logx"
	"pkt.systems/procstream/schema"
)

// DefaultKillGrace is how long a terminated process may take to exit
// before it is killed.
const DefaultKillGrace = 5 * time.Second

// Config controls how child processes are run.
type Config struct {
	// Encoding of the child's output. UTF-8 when nil.
	Encoding encoding.Encoding
	// BufferSize is the read size per stream.
	BufferSize int
	// KillGrace is the delay between SIGTERM and SIGKILL on cancellation.
	KillGrace time.Duration
	// TrackChildren runs each child in its own process group so signals
	// reach its descendants, and on Linux kills the child with the parent.
	TrackChildren bool
}

// Runner implements core.Runner.
type Runner struct {
	cfg Config
}

var _ core.Runner = (*Runner)(nil)

// New constructs a runner.
func New(cfg Config) *Runner {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = core.DefaultBufferSize
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	return &Runner{cfg: cfg}
}

// Start launches cmd. Output events reach handler one at a time; EOF
// markers are not forwarded. Canceling ctx terminates the process.
func (r *Runner) Start(ctx context.Context, cmd core.Command, handler core.Handler) (core.Process, error) {
	p, err := r.start(ctx, cmd, handler)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Runner) start(ctx context.Context, cmd core.Command, handler core.Handler) (*process, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, schema.ErrEmptyCommand
	}
	id := schema.ProcessID(uuid.NewString())
	log := logx.WithProcess(logx.Ctx(ctx), id, cmd.Name)
	log.Info(
		"process start",
		"args_len", len(cmd.Args),
		"args", cmd.Args,
		"workdir", cmd.Dir,
		"env_extra", len(cmd.Env),
		"pty", cmd.PTY,
	)

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = mergeEnv(os.Environ(), cmd.Env)
	c.WaitDelay = r.cfg.KillGrace
	attr := processAttr(r.cfg.TrackChildren, cmd.PTY)

	p := newProcess(id, cmd.Name, log, r.cfg.KillGrace, r.cfg.TrackChildren || cmd.PTY, handler)
	p.cmd = c

	var err error
	if cmd.PTY {
		err = p.startPTY(c, attr, cmd.Stdin)
	} else {
		err = p.startPipes(c, attr, cmd.Stdin)
	}
	if err != nil {
		log.Error("process start failed", "err", err)
		return nil, schema.NewProcessError(schema.ProcessErrorStart, schema.Result{Name: cmd.Name, ExitCode: -1}, err)
	}
	log.Info("process started", "pid", c.Process.Pid)

	readerCtx, cancelReaders := context.WithCancel(logx.ContextWithProcessLogger(context.WithoutCancel(ctx), log, id))
	p.cancelReaders = cancelReaders
	opts := []core.ReaderOption{
		core.WithEncoding(r.cfg.Encoding),
		core.WithBufferSize(r.cfg.BufferSize),
		core.WithLogger(log),
	}
	p.stdout = core.NewReader(p.stdoutFile, p.deliver, opts...)
	if p.stderrFile != nil {
		p.stderr = core.NewReader(p.stderrFile, p.deliver, append(opts, core.WithStdErr(true))...)
	}
	for _, reader := range p.readers() {
		if err := reader.Start(readerCtx); err != nil {
			return nil, err
		}
	}
	go p.waitProcess()
	go p.finish()
	go p.forwardErrors()
	go p.watch(ctx)
	return p, nil
}

// Run starts cmd and blocks until it exits and both streams end. When ctx
// ends first the process group is terminated and a *schema.ProcessError of
// kind canceled carries the partial result.
func (r *Runner) Run(ctx context.Context, cmd core.Command, handler core.Handler) (schema.Result, error) {
	p, err := r.start(ctx, cmd, handler)
	if err != nil {
		var result schema.Result
		var perr *schema.ProcessError
		if errors.As(err, &perr) {
			result = perr.Result
		}
		return result, err
	}
	defer func() { _ = p.Close() }()
	return p.Wait(ctx)
}

// RunExpect runs cmd and fails with a *schema.ProcessError when the exit
// code is not expected.
func (r *Runner) RunExpect(ctx context.Context, cmd core.Command, handler core.Handler, expected int) (schema.Result, error) {
	result, err := r.Run(ctx, cmd, handler)
	if err != nil {
		return result, err
	}
	if err := schema.ValidateExit(result, expected); err != nil {
		logx.Ctx(ctx).Warn("process exit code mismatch", "process", result.Name, "exit_code", result.ExitCode, "expected", expected)
		return result, err
	}
	return result, nil
}

// Output runs name and returns its standard output. A non-zero exit code
// is an error; the output is returned regardless.
func (r *Runner) Output(ctx context.Context, name string, args ...string) (string, error) {
	result, err := r.RunExpect(ctx, core.Command{Name: name, Args: args}, nil, 0)
	return result.Stdout, err
}

// startPipes wires stdout and stderr to dedicated pipes. The parent keeps
// only the read ends, so each stream reaches EOF once every writer in the
// child's tree is gone, independent of cmd.Wait.
func (p *process) startPipes(c *exec.Cmd, attr *syscall.SysProcAttr, stdin io.Reader) error {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}
	c.Stdout = stdoutW
	c.Stderr = stderrW
	c.Stdin = stdin
	c.SysProcAttr = attr
	err = c.Start()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	if err != nil {
		_ = stdoutR.Close()
		_ = stderrR.Close()
		return err
	}
	p.stdoutFile = stdoutR
	p.stderrFile = stderrR
	return nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(base)+len(keys))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if _, ok := extra[key]; ok {
			continue
		}
		out = append(out, entry)
	}
	for _, key := range keys {
		out = append(out, key+"="+extra[key])
	}
	return out
}
