package apc

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/procstream/schema"
)

func frame(body string) string {
	return Marker + Prefix + body + Terminator
}

func TestTryParseInput(t *testing.T) {
	msg, err := TryParse(frame(`{"type":"input","data":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, schema.ApcMessage{Type: schema.ApcInput, Data: "hello"}, msg)
}

func TestTryParseNotFrame(t *testing.T) {
	for _, input := range []string{
		"",
		"hello\n",
		Marker,
		Marker + Prefix + `{"type":"input","data":"x"}`,
		Prefix + `{"type":"input","data":"x"}` + Terminator,
		Marker + "[XX;" + `{"type":"input","data":"x"}` + Terminator,
	} {
		_, err := TryParse(input)
		assert.ErrorIs(t, err, ErrNotFrame, "%q", input)
	}
}

func TestTryParseInvalidPayload(t *testing.T) {
	tests := map[string]string{
		"malformed":     `{"type":"input","data":`,
		"unknown field": `{"type":"input","data":"x","extra":1}`,
		"missing type":  `{"data":"x"}`,
		"missing data":  `{"type":"input"}`,
		"unknown type":  `{"type":"progress","data":"x"}`,
		"wrong kind":    `{"type":"input","data":5}`,
		"trailing":      `{"type":"input","data":"x"}{}`,
		"empty":         ``,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := TryParse(frame(body))
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, frame(body), perr.Frame)
		})
	}
}

func TestMatchPrefix(t *testing.T) {
	assert.Equal(t, MatchFull, MatchPrefix(Marker+Prefix+"{"))
	assert.Equal(t, MatchFull, MatchPrefix(Marker+Prefix))
	assert.Equal(t, MatchPartial, MatchPrefix(Marker))
	assert.Equal(t, MatchPartial, MatchPrefix(Marker+"[S"))
	assert.Equal(t, MatchNone, MatchPrefix(Marker+"[X"))
	assert.Equal(t, MatchNone, MatchPrefix(Marker+"hello world"))
}

func TestFormatRoundTrip(t *testing.T) {
	in := schema.ApcMessage{Type: schema.ApcInput, Data: "y/n? <ok> & " + Terminator + Marker}
	encoded, err := Format(in)
	require.NoError(t, err)
	assert.True(t, IsFrame(encoded))
	assert.Equal(t, 1, strings.Count(encoded, Terminator))

	out, err := TryParse(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFormatRejectsUnknownType(t *testing.T) {
	_, err := Format(schema.ApcMessage{Type: "bogus"})
	assert.Error(t, err)
}
