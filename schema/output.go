package schema

// AnsiCommand is a set of terminal commands recognized at the start of a
// message, in addition to cursor-up.
type AnsiCommand uint8

// AnsiNone means no command was recognized.
const AnsiNone AnsiCommand = 0

const (
	// AnsiEraseToEnd erases from the cursor to the end of the line (ESC[K, ESC[0K).
	AnsiEraseToEnd AnsiCommand = 1 << iota
	// AnsiEraseToStart erases from the start of the line to the cursor (ESC[1K).
	AnsiEraseToStart
	// AnsiEraseLine erases the whole line (ESC[2K).
	AnsiEraseLine
)

// Has reports whether every flag in other is set on c.
func (c AnsiCommand) Has(other AnsiCommand) bool {
	return other != AnsiNone && c&other == other
}

func (c AnsiCommand) String() string {
	switch c {
	case AnsiNone:
		return "none"
	case AnsiEraseToEnd:
		return "erase_to_end"
	case AnsiEraseToStart:
		return "erase_to_start"
	case AnsiEraseLine:
		return "erase_line"
	default:
		return "mixed"
	}
}

// Output is one structured event produced from one raw message of a
// child-process stream. Values are never mutated after construction.
type Output struct {
	// Text is the message with recognized leading control prefixes removed.
	// Line terminators are kept.
	Text string `json:"text"`
	// RawText is the message exactly as it was segmented.
	RawText string `json:"raw_text,omitempty"`
	// IsStdErr is true when the message came from standard error.
	IsStdErr bool `json:"stderr,omitempty"`
	// ClearLines counts the leading bare carriage returns (overwrite requests).
	ClearLines int `json:"clear_lines,omitempty"`
	// CursorUp is the cursor-up count plus one for the current line.
	CursorUp int `json:"cursor_up,omitempty"`
	// AnsiCommand holds erase-line commands recognized after cursor-up.
	AnsiCommand AnsiCommand `json:"ansi_command,omitempty"`
	// Apc is set when the message is a complete, valid APC frame.
	Apc *ApcMessage `json:"apc,omitempty"`
	// EOF marks the terminal sentinel of a stream. It carries no text.
	EOF bool `json:"eof,omitempty"`
}

// Stream returns the channel the event was produced on.
func (o Output) Stream() StreamKind {
	return StreamFor(o.IsStdErr)
}

// MarshalText renders the command set by name in JSON output.
func (c AnsiCommand) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
