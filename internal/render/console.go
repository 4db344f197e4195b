package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"pkt.systems/procstream/schema"
)

const (
	csiEraseLine    = "\x1b[2K"
	csiEraseToEnd   = "\x1b[K"
	csiEraseToStart = "\x1b[1K"
)

// Console prints event text. On a terminal, overwrite requests are
// replayed as cursor movements; otherwise every overwrite starts a new
// line.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	tty bool
	err error

	stderrStyle lipgloss.Style
	apcStyle    lipgloss.Style

	atLineStart bool
	pendingCR   bool
}

// NewConsole returns a console renderer writing to w.
func NewConsole(w io.Writer, tty bool) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:           w,
		tty:         tty,
		stderrStyle: r.NewStyle().Foreground(lipgloss.Color("9")).TabWidth(lipgloss.NoTabConversion),
		apcStyle:    r.NewStyle().Foreground(lipgloss.Color("13")).Italic(true).TabWidth(lipgloss.NoTabConversion),
		atLineStart: true,
	}
}

// OnOutput prints one event.
func (c *Console) OnOutput(event schema.Output) {
	if event.EOF {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	if event.Apc != nil {
		if !c.atLineStart {
			b.WriteString("\n")
		}
		b.WriteString(paint(c.apcStyle, fmt.Sprintf("[apc %s] %s", event.Apc.Type, event.Apc.Data)))
		b.WriteString("\n")
		c.atLineStart = true
		c.pendingCR = false
		c.write(b.String())
		return
	}

	text := event.Text
	if c.tty {
		c.writeControls(&b, event)
	} else {
		if event.ClearLines > 0 && !c.atLineStart {
			b.WriteString("\n")
			c.atLineStart = true
		}
		if c.pendingCR && strings.HasPrefix(text, "\n") {
			text = text[1:]
		}
		c.pendingCR = strings.HasSuffix(event.Text, "\r")
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
	}
	if text == "" {
		c.write(b.String())
		return
	}
	if event.IsStdErr {
		b.WriteString(paint(c.stderrStyle, text))
	} else {
		b.WriteString(text)
	}
	c.atLineStart = strings.HasSuffix(text, "\n") || strings.HasSuffix(text, "\r")
	c.write(b.String())
}

func (c *Console) writeControls(b *strings.Builder, event schema.Output) {
	if event.ClearLines > 0 {
		b.WriteString("\r")
		b.WriteString(csiEraseLine)
	}
	if event.CursorUp > 1 {
		fmt.Fprintf(b, "\x1b[%dA\r", event.CursorUp-1)
	}
	switch {
	case event.AnsiCommand.Has(schema.AnsiEraseLine):
		b.WriteString(csiEraseLine)
	case event.AnsiCommand.Has(schema.AnsiEraseToStart):
		b.WriteString(csiEraseToStart)
	case event.AnsiCommand.Has(schema.AnsiEraseToEnd):
		b.WriteString(csiEraseToEnd)
	}
}

func (c *Console) write(s string) {
	if s == "" || c.err != nil {
		return
	}
	if _, err := io.WriteString(c.w, s); err != nil {
		c.err = err
	}
}

// Err returns the first write failure.
func (c *Console) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// paint styles each line of s separately so line terminators stay
// outside the escape sequences.
func paint(style lipgloss.Style, s string) string {
	var b strings.Builder
	for s != "" {
		end := strings.IndexAny(s, "\r\n")
		if end == -1 {
			b.WriteString(style.Render(s))
			break
		}
		if end > 0 {
			b.WriteString(style.Render(s[:end]))
		}
		b.WriteByte(s[end])
		s = s[end+1:]
	}
	return b.String()
}
