package core

import (
	"pkt.systems/pslog"

	"pkt.systems/procstream/internal/ansi"
	"pkt.systems/procstream/internal/apc"
	"pkt.systems/procstream/schema"
)

// Interpreter turns raw messages into output events.
type Interpreter struct {
	log pslog.Logger
}

// NewInterpreter returns an interpreter that reports malformed APC frames
// to log. A nil logger discards them.
func NewInterpreter(log pslog.Logger) *Interpreter {
	return &Interpreter{log: log}
}

// Interpret builds exactly one Output from raw.
func (in *Interpreter) Interpret(raw string, isStdErr bool) schema.Output {
	out := schema.Output{RawText: raw, IsStdErr: isStdErr}
	if apc.IsFrame(raw) {
		msg, err := apc.TryParse(raw)
		if err == nil {
			out.Text = raw
			out.Apc = &msg
			return out
		}
		if in.log != nil {
			in.log.Warn("apc frame rejected", "stream", schema.StreamFor(isStdErr), "err", err, "preview", previewText(raw, 200))
		}
	}

	text := raw
	for len(text) > 0 && text[0] == '\r' {
		if len(text) > 1 && text[1] == '\n' {
			break
		}
		out.ClearLines++
		text = text[1:]
	}
	if count, n, ok := ansi.MatchCursorUp(text); ok {
		out.CursorUp = count + 1
		text = text[n:]
	}
	if cmd, n, ok := ansi.MatchEraseLine(text); ok {
		out.AnsiCommand = cmd
		text = text[n:]
	}
	out.Text = text
	return out
}

func previewText(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	for limit > 0 && limit < len(text) && text[limit]&0xc0 == 0x80 {
		limit--
	}
	return text[:limit] + "..."
}
