package procexec

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/procstream/core"
	"pkt.systems/procstream/schema"
)

type process struct {
	id      schema.ProcessID
	name    string
	cmd     *exec.Cmd
	log     pslog.Logger
	grace   time.Duration
	group   bool
	handler core.Handler
	started time.Time

	stdoutFile    *os.File
	stderrFile    *os.File
	stdout        *core.Reader
	stderr        *core.Reader
	cancelReaders context.CancelFunc

	exited chan struct{}
	done   chan struct{}
	errs   chan error

	terminateOnce sync.Once
	terminated    chan struct{}
	closeOnce     sync.Once

	// deliverMu serializes handler calls from both streams. delivering is
	// set while the handler runs.
	deliverMu  sync.Mutex
	delivering atomic.Bool

	// mu guards the fields below. It is never held while the handler runs.
	mu         sync.Mutex
	stdoutText strings.Builder
	stderrText strings.Builder
	combined   strings.Builder
	exitCode   int
	signal     string
	elapsed    time.Duration
	waitErr    error
}

func newProcess(id schema.ProcessID, name string, log pslog.Logger, grace time.Duration, group bool, handler core.Handler) *process {
	return &process{
		id:         id,
		name:       name,
		log:        log,
		grace:      grace,
		group:      group,
		handler:    handler,
		started:    time.Now(),
		exited:     make(chan struct{}),
		done:       make(chan struct{}),
		terminated: make(chan struct{}),
		errs:       make(chan error, 2),
	}
}

func (p *process) ID() schema.ProcessID {
	return p.id
}

func (p *process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) Name() string {
	return p.name
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Errors() <-chan error {
	return p.errs
}

func (p *process) readers() []*core.Reader {
	if p.stderr == nil {
		return []*core.Reader{p.stdout}
	}
	return []*core.Reader{p.stdout, p.stderr}
}

// deliver runs on either stream's read loop.
func (p *process) deliver(out schema.Output) {
	if out.EOF {
		return
	}
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	p.mu.Lock()
	if out.Apc == nil {
		if out.IsStdErr {
			p.stderrText.WriteString(out.Text)
		} else {
			p.stdoutText.WriteString(out.Text)
		}
		p.combined.WriteString(out.Text)
	}
	p.mu.Unlock()
	if p.handler == nil {
		return
	}
	p.delivering.Store(true)
	defer p.delivering.Store(false)
	p.handler(out)
}

func (p *process) waitProcess() {
	err := p.cmd.Wait()
	exitCode := -1
	signal := ""
	if state := p.cmd.ProcessState; state != nil {
		exitCode = state.ExitCode()
		signal = exitSignal(state)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		p.log.Error("process wait failed", "err", err)
	} else {
		err = nil
	}
	p.mu.Lock()
	p.exitCode = exitCode
	p.signal = signal
	p.elapsed = time.Since(p.started)
	p.waitErr = err
	p.mu.Unlock()
	close(p.exited)
}

// finish closes done once the child exited and both streams ended.
func (p *process) finish() {
	<-p.exited
	for _, reader := range p.readers() {
		<-reader.Done()
	}
	p.mu.Lock()
	fields := []any{
		"exit_code", p.exitCode,
		"duration_ms", p.elapsed.Milliseconds(),
		"stdout_len", p.stdoutText.Len(),
		"stderr_len", p.stderrText.Len(),
	}
	if p.signal != "" {
		fields = append(fields, "signal", p.signal)
	}
	p.mu.Unlock()
	p.log.Info("process finished", fields...)
	close(p.done)
}

func (p *process) forwardErrors() {
	defer close(p.errs)
	for _, reader := range p.readers() {
		for err := range reader.Errors() {
			p.errs <- err
		}
	}
}

// watch terminates the process when the start context ends first.
func (p *process) watch(ctx context.Context) {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.log.Debug("process context ended", "err", ctx.Err())
		p.terminate()
		<-p.terminated
	}
}

func (p *process) result() schema.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := p.elapsed
	select {
	case <-p.exited:
	default:
		elapsed = time.Since(p.started)
	}
	return schema.Result{
		Name:     p.name,
		ExitCode: p.exitCode,
		Signal:   p.signal,
		Stdout:   p.stdoutText.String(),
		Stderr:   p.stderrText.String(),
		Combined: p.combined.String(),
		Elapsed:  elapsed,
	}
}

func (p *process) Wait(ctx context.Context) (schema.Result, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.log.Info("process wait canceled", "err", ctx.Err())
		p.terminate()
		// A handler call in progress holds a read loop; done cannot close
		// before it returns.
		if !p.delivering.Load() {
			<-p.terminated
			<-p.done
		}
		result := p.result()
		return result, schema.NewProcessError(schema.ProcessErrorCanceled, result, ctx.Err())
	}
	result := p.result()
	p.mu.Lock()
	waitErr := p.waitErr
	p.mu.Unlock()
	if waitErr != nil {
		return result, schema.NewProcessError(schema.ProcessErrorWait, result, waitErr)
	}
	for _, reader := range p.readers() {
		if err := reader.Err(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// terminate starts shutting the process down and returns at once.
// terminated is closed when the escalation is over.
func (p *process) terminate() {
	p.terminateOnce.Do(func() {
		go p.escalate()
	})
}

// escalate sends SIGTERM, then SIGKILL once the grace period passed. If
// the streams stay open after that, a descendant escaped the process group
// or the handler is stuck, and the readers are cut off.
func (p *process) escalate() {
	defer close(p.terminated)
	select {
	case <-p.done:
		return
	default:
	}
	if err := p.Signal(core.ProcessSignalTERM); err != nil {
		p.log.Debug("process terminate failed", "err", err)
	}
	if p.waitDone(p.grace) {
		return
	}
	p.log.Warn("process did not exit after terminate; killing", "grace_ms", p.grace.Milliseconds())
	if err := p.Kill(); err != nil {
		p.log.Debug("process kill failed", "err", err)
	}
	if p.waitDone(p.grace) {
		return
	}
	p.log.Warn("process output still open after kill; closing streams")
	p.cancelReaders()
}

func (p *process) waitDone(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

func (p *process) Signal(sig core.ProcessSignal) error {
	if p.cmd == nil || p.cmd.Process == nil {
		return schema.ErrNotStarted
	}
	select {
	case <-p.exited:
		if !p.group {
			return nil
		}
	default:
	}
	return signalProcess(p.cmd.Process, sig, p.group)
}

func (p *process) Kill() error {
	return p.Signal(core.ProcessSignalKILL)
}

// Close terminates a still running process and releases its streams. It
// waits for the streams to end unless a handler call is in progress, since
// Close may be that call; then the release finishes in the background.
func (p *process) Close() error {
	p.closeOnce.Do(func() {
		p.terminate()
		if p.delivering.Load() {
			go p.release()
			return
		}
		p.release()
	})
	return nil
}

func (p *process) release() {
	<-p.terminated
	p.cancelReaders()
	<-p.done
	for _, f := range []*os.File{p.stdoutFile, p.stderrFile} {
		if f != nil {
			_ = f.Close()
		}
	}
}
