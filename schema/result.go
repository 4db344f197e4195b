package schema

import "time"

// Result describes a finished (or cut-off) process run.
type Result struct {
	Name     string        `json:"name"`
	ExitCode int           `json:"exit_code"`
	Signal   string        `json:"signal,omitempty"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Combined string        `json:"combined,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// IsSuccessExitCode reports whether the process exited with code zero.
func (r Result) IsSuccessExitCode() bool {
	return r.ExitCode == 0
}

// ValidateExit returns a *ProcessError when result's exit code differs
// from expected.
func ValidateExit(result Result, expected int) error {
	if result.ExitCode == expected {
		return nil
	}
	err := NewProcessError(ProcessErrorExitCode, result, nil)
	err.Expected = expected
	return err
}
