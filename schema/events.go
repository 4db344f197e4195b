package schema

// ApcType is the closed set of message kinds carried in APC frames.
type ApcType string

const (
	// ApcInput asks the consumer for interactive input.
	ApcInput ApcType = "input"
)

// Valid reports whether t is a known APC message type.
func (t ApcType) Valid() bool {
	switch t {
	case ApcInput:
		return true
	default:
		return false
	}
}

// ApcMessage is a structured out-of-band message multiplexed into a
// process's text output.
type ApcMessage struct {
	Type ApcType `json:"type"`
	Data string  `json:"data"`
}
