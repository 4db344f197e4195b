package ansi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/procstream/schema"
)

func TestParseCSI(t *testing.T) {
	seq, ok := Parse("\x1b[38;5;2mgreen")
	require.True(t, ok)
	assert.Equal(t, KindCSI, seq.Kind)
	assert.Equal(t, "38;5;2", seq.Params)
	assert.Equal(t, byte('m'), seq.Final)
	assert.Equal(t, len("\x1b[38;5;2m"), seq.Len)
}

func TestParseOSC(t *testing.T) {
	seq, ok := Parse("\x1b]0;title\x07rest")
	require.True(t, ok)
	assert.Equal(t, KindOSC, seq.Kind)
	assert.Equal(t, "0;title", seq.Params)
	assert.Equal(t, 10, seq.Len)

	seq, ok = Parse("\x1b]8;;http://x\x1b\\link")
	require.True(t, ok)
	assert.Equal(t, "8;;http://x", seq.Params)
	assert.Equal(t, len("\x1b]8;;http://x\x1b\\"), seq.Len)
}

func TestParseIncomplete(t *testing.T) {
	for _, input := range []string{"", "x", "\x1b", "\x1b[12", "\x1b]0;title"} {
		_, ok := Parse(input)
		assert.False(t, ok, "%q", input)
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "helloworld", Strip("\x1b[2Jhello\x1b[0mworld"))
	assert.Equal(t, "plain ✓", Strip("plain ✓"))
	assert.Equal(t, "title done", Strip("\x1b]0;x\x07title done\x1b[1"))
}

func TestMatchCursorUp(t *testing.T) {
	tests := []struct {
		input  string
		count  int
		length int
		ok     bool
	}{
		{input: "\x1b[2AOverwrite\n", count: 2, length: 4, ok: true},
		{input: "\x1b[AOverwrite", count: 1, length: 3, ok: true},
		{input: "\x1b[10A", count: 10, length: 5, ok: true},
		{input: "\x1b[2B", ok: false},
		{input: "\x1b[1;2A", ok: false},
		{input: "x\x1b[2A", ok: false},
	}
	for _, tc := range tests {
		count, length, ok := MatchCursorUp(tc.input)
		assert.Equal(t, tc.ok, ok, "%q", tc.input)
		assert.Equal(t, tc.count, count, "%q", tc.input)
		assert.Equal(t, tc.length, length, "%q", tc.input)
	}
}

func TestMatchEraseLine(t *testing.T) {
	cmd, n, ok := MatchEraseLine("\x1b[Kabc")
	require.True(t, ok)
	assert.Equal(t, schema.AnsiEraseToEnd, cmd)
	assert.Equal(t, 3, n)

	cmd, _, ok = MatchEraseLine("\x1b[1K")
	require.True(t, ok)
	assert.Equal(t, schema.AnsiEraseToStart, cmd)

	cmd, n, ok = MatchEraseLine("\x1b[2K")
	require.True(t, ok)
	assert.Equal(t, schema.AnsiEraseLine, cmd)
	assert.Equal(t, 4, n)

	_, _, ok = MatchEraseLine("\x1b[3K")
	assert.False(t, ok)
}
