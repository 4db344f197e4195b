// Package apc parses the out-of-band APC frames multiplexed into process
// output. A frame is the marker U+009F, the literal "[SM;", a JSON object
// with exactly the string fields "type" and "data", and the terminator
// U+009C.
package apc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"pkt.systems/procstream/schema"
)

const (
	// Marker opens a frame (APC, U+009F).
	Marker = "\u009f"
	// Terminator closes a frame (ST, U+009C).
	Terminator = "\u009c"
	// Prefix follows the marker on every frame.
	Prefix = "[SM;"
)

// ErrNotFrame is returned when a string is not delimited as an APC frame.
var ErrNotFrame = errors.New("not an apc frame")

// Match describes how far a candidate frame start agrees with Marker+Prefix.
type Match int

const (
	// MatchNone means the bytes contradict the prefix; the marker is text.
	MatchNone Match = iota
	// MatchPartial means the available bytes agree but the prefix is cut off.
	MatchPartial
	// MatchFull means marker and prefix are both present.
	MatchFull
)

// ParseError reports a delimited frame whose payload is invalid.
type ParseError struct {
	Frame string
	Err   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "apc parse error"
	}
	return fmt.Sprintf("invalid apc payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsMarkerStart reports whether s begins with the frame marker.
func IsMarkerStart(s string) bool {
	return strings.HasPrefix(s, Marker)
}

// MatchPrefix checks the start of s, which must begin with Marker, against
// Marker+Prefix.
func MatchPrefix(s string) Match {
	head := Marker + Prefix
	if len(s) >= len(head) {
		if s[:len(head)] == head {
			return MatchFull
		}
		return MatchNone
	}
	if head[:len(s)] == s {
		return MatchPartial
	}
	return MatchNone
}

// IsFrame reports whether s is delimited as a frame, without validating
// the payload.
func IsFrame(s string) bool {
	return len(s) >= len(Marker)+len(Prefix)+len(Terminator) &&
		strings.HasPrefix(s, Marker+Prefix) &&
		strings.HasSuffix(s, Terminator)
}

type payload struct {
	Type *string `json:"type"`
	Data *string `json:"data"`
}

// TryParse decodes s as one complete frame.
func TryParse(s string) (schema.ApcMessage, error) {
	if !IsFrame(s) {
		return schema.ApcMessage{}, ErrNotFrame
	}
	body := s[len(Marker)+len(Prefix) : len(s)-len(Terminator)]
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	var p payload
	if err := dec.Decode(&p); err != nil {
		return schema.ApcMessage{}, &ParseError{Frame: s, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return schema.ApcMessage{}, &ParseError{Frame: s, Err: errors.New("trailing data after payload")}
	}
	if p.Type == nil {
		return schema.ApcMessage{}, &ParseError{Frame: s, Err: errors.New(`missing field "type"`)}
	}
	if p.Data == nil {
		return schema.ApcMessage{}, &ParseError{Frame: s, Err: errors.New(`missing field "data"`)}
	}
	msgType := schema.ApcType(*p.Type)
	if !msgType.Valid() {
		return schema.ApcMessage{}, &ParseError{Frame: s, Err: fmt.Errorf("unknown type %q", *p.Type)}
	}
	return schema.ApcMessage{Type: msgType, Data: *p.Data}, nil
}

// Format encodes msg as a frame.
func Format(msg schema.ApcMessage) (string, error) {
	if !msg.Type.Valid() {
		return "", fmt.Errorf("apc: unknown type %q", msg.Type)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return "", err
	}
	body := strings.TrimSuffix(buf.String(), "\n")
	// A raw delimiter inside a string would end the frame early.
	body = strings.NewReplacer(Marker, `\u009f`, Terminator, `\u009c`).Replace(body)
	return Marker + Prefix + body + Terminator, nil
}
