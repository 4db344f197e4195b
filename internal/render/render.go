// Package render prints output events for the command line.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"pkt.systems/procstream/internal/appconfig"
	"pkt.systems/procstream/schema"
)

// Renderer prints output events. Write failures do not interrupt the
// stream; the first one is kept and reported by Err.
type Renderer interface {
	OnOutput(event schema.Output)
	Err() error
}

// New returns the renderer for format. The console format falls back to
// plain text when w is not a terminal.
func New(w io.Writer, format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", appconfig.FormatConsole:
		return NewConsole(w, IsTerminal(w)), nil
	case appconfig.FormatPlain:
		return NewConsole(w, false), nil
	case appconfig.FormatJSONL:
		return NewJSONL(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
