package schema

// ProcessID identifies one started child process for log correlation.
type ProcessID string

// StreamKind names the output channel a message came from.
type StreamKind string

const (
	// StreamStdout is the child's standard output (or its PTY).
	StreamStdout StreamKind = "stdout"
	// StreamStderr is the child's standard error.
	StreamStderr StreamKind = "stderr"
)

// StreamFor maps the IsStdErr flag to a StreamKind.
func StreamFor(isStdErr bool) StreamKind {
	if isStdErr {
		return StreamStderr
	}
	return StreamStdout
}
