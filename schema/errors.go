package schema

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyCommand indicates a command without an executable name.
	ErrEmptyCommand = errors.New("empty command")
	// ErrAlreadyStarted indicates a reader or process was started twice.
	ErrAlreadyStarted = errors.New("already started")
	// ErrNotStarted indicates an operation on a process that never started.
	ErrNotStarted = errors.New("process not started")
)

// ProcessErrorKind classifies process failures.
type ProcessErrorKind string

const (
	// ProcessErrorExitCode indicates the exit code did not match the expected value.
	ProcessErrorExitCode ProcessErrorKind = "exit_code"
	// ProcessErrorCanceled indicates the wait was canceled and the process killed.
	ProcessErrorCanceled ProcessErrorKind = "canceled"
	// ProcessErrorStart indicates the process could not be started.
	ProcessErrorStart ProcessErrorKind = "start"
	// ProcessErrorWait indicates waiting for the process failed.
	ProcessErrorWait ProcessErrorKind = "wait"
)

// ProcessError wraps a process failure with the result captured so far.
type ProcessError struct {
	Kind     ProcessErrorKind
	ExitCode int
	Expected int
	Result   Result
	Err      error
}

// NewProcessError constructs a classified process error.
func NewProcessError(kind ProcessErrorKind, result Result, err error) *ProcessError {
	return &ProcessError{Kind: kind, ExitCode: result.ExitCode, Result: result, Err: err}
}

func (e *ProcessError) Error() string {
	if e == nil {
		return "process error"
	}
	name := e.Result.Name
	if name == "" {
		name = "<unnamed>"
	}
	switch e.Kind {
	case ProcessErrorExitCode:
		return fmt.Sprintf("process %s failed with exit-code %d (expected %d)", name, e.ExitCode, e.Expected)
	case ProcessErrorCanceled:
		return fmt.Sprintf("process %s canceled after %s", name, e.Result.Elapsed.Round(time.Millisecond))
	}
	if e.Err != nil {
		return fmt.Sprintf("process %s %s failed: %v", name, e.Kind, e.Err)
	}
	return fmt.Sprintf("process %s %s failed", name, e.Kind)
}

func (e *ProcessError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CallbackError records a panic raised by an output handler. The stream
// that produced it stops delivering events.
type CallbackError struct {
	Stream StreamKind
	Value  any
	Stack  []byte
}

func (e *CallbackError) Error() string {
	if e == nil {
		return "output handler failed"
	}
	return fmt.Sprintf("output handler panicked on %s: %v", e.Stream, e.Value)
}

func (e *CallbackError) Unwrap() error {
	if e == nil {
		return nil
	}
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
