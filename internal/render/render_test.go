package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/procstream/schema"
)

func TestPlainConsoleWritesLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.OnOutput(schema.Output{Text: "one\r\n"})
	c.OnOutput(schema.Output{Text: "two\n"})
	c.OnOutput(schema.Output{EOF: true})
	require.NoError(t, c.Err())
	assert.Equal(t, "one\ntwo\n", buf.String())
}

func TestPlainConsoleTurnsOverwritesIntoLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.OnOutput(schema.Output{Text: "10%"})
	c.OnOutput(schema.Output{Text: "20%", ClearLines: 1})
	c.OnOutput(schema.Output{Text: "done\r"})
	c.OnOutput(schema.Output{Text: "\n"})
	c.OnOutput(schema.Output{Text: "next\n"})
	assert.Equal(t, "10%\n20%done\nnext\n", buf.String())
}

func TestTerminalConsoleReplaysControls(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)
	c.OnOutput(schema.Output{Text: "50%", ClearLines: 1})
	c.OnOutput(schema.Output{Text: "status\n", CursorUp: 3, AnsiCommand: schema.AnsiEraseLine})
	assert.Equal(t, "\r\x1b[2K50%\x1b[2A\r\x1b[2Kstatus\n", buf.String())
}

func TestTerminalConsoleEraseVariants(t *testing.T) {
	cases := []struct {
		cmd  schema.AnsiCommand
		want string
	}{
		{schema.AnsiEraseToEnd, "\x1b[K"},
		{schema.AnsiEraseToStart, "\x1b[1K"},
		{schema.AnsiEraseLine, "\x1b[2K"},
	}
	for _, tc := range cases {
		t.Run(tc.cmd.String(), func(t *testing.T) {
			var buf bytes.Buffer
			NewConsole(&buf, true).OnOutput(schema.Output{Text: "x", CursorUp: 1, AnsiCommand: tc.cmd})
			assert.Equal(t, tc.want+"x", buf.String())
		})
	}
}

func TestConsoleApcOnOwnLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.OnOutput(schema.Output{Text: "prompt"})
	c.OnOutput(schema.Output{Apc: &schema.ApcMessage{Type: schema.ApcInput, Data: "name?"}})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "prompt\n"), out)
	assert.Contains(t, out, "[apc input] name?")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestConsoleKeepsStderrText(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, false).OnOutput(schema.Output{Text: "a\tb\n", IsStdErr: true})
	assert.Contains(t, buf.String(), "a\tb")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestPaintKeepsTerminatorsOutside(t *testing.T) {
	var buf bytes.Buffer
	style := NewConsole(&buf, false).stderrStyle
	assert.Equal(t, "a\nb\n", paint(style, "a\nb\n"))
	assert.Equal(t, "\n", paint(style, "\n"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

func TestConsoleRecordsWriteError(t *testing.T) {
	c := NewConsole(failingWriter{}, false)
	c.OnOutput(schema.Output{Text: "x\n"})
	assert.EqualError(t, c.Err(), "closed")
}

func TestJSONLIncludesStreamAndEOF(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSONL(&buf)
	j.OnOutput(schema.Output{Text: "<b>\n", RawText: "<b>\n", IsStdErr: true})
	j.OnOutput(schema.Output{EOF: true, IsStdErr: true})
	require.NoError(t, j.Err())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"text":"<b>\n"`)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "stderr", first["stream"])
	assert.Equal(t, true, first["stderr"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	assert.Equal(t, true, last["eof"])
}

func TestNewSelectsFormat(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&buf, "jsonl")
	require.NoError(t, err)
	assert.IsType(t, &JSONL{}, r)

	r, err = New(&buf, "console")
	require.NoError(t, err)
	require.IsType(t, &Console{}, r)
	assert.False(t, r.(*Console).tty)

	_, err = New(&buf, "xml")
	assert.Error(t, err)
}
