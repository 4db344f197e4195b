// Package ansi recognizes ANSI escape sequences in decoded process output.
package ansi

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"pkt.systems/procstream/schema"
)

// Esc introduces every escape sequence.
const Esc = 0x1b

// Kind classifies a recognized escape sequence.
type Kind uint8

const (
	// KindOther is a two-byte ESC sequence (ESC followed by one character).
	KindOther Kind = iota
	// KindCSI is a control sequence: ESC [ params final.
	KindCSI
	// KindOSC is an operating system command: ESC ] ... BEL or ESC \.
	KindOSC
)

// Sequence is one escape sequence found at the start of a string.
type Sequence struct {
	Kind Kind
	// Params holds the parameter and intermediate bytes of a CSI, or the
	// payload of an OSC.
	Params string
	// Final is the terminating byte of a CSI, or the character after ESC.
	Final byte
	// Len is the number of bytes the sequence occupies.
	Len int
}

// Parse recognizes a complete escape sequence at the start of s. It returns
// false when s does not start with ESC or the sequence is not terminated.
func Parse(s string) (Sequence, bool) {
	if len(s) < 2 || s[0] != Esc {
		return Sequence{}, false
	}
	switch s[1] {
	case '[':
		end, ok := skipCSI(s, 2)
		if !ok {
			return Sequence{}, false
		}
		return Sequence{Kind: KindCSI, Params: s[2 : end-1], Final: s[end-1], Len: end}, true
	case ']':
		end, termLen, ok := skipOSC(s, 2)
		if !ok {
			return Sequence{}, false
		}
		return Sequence{Kind: KindOSC, Params: s[2 : end-termLen], Len: end}, true
	default:
		return Sequence{Kind: KindOther, Final: s[1], Len: 2}, true
	}
}

// Strip removes every complete escape sequence from s. An unterminated
// trailing sequence is dropped as well.
func Strip(s string) string {
	if strings.IndexByte(s, Esc) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != Esc {
			_, size := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+size])
			i += size
			continue
		}
		seq, ok := Parse(s[i:])
		if !ok {
			break
		}
		i += seq.Len
	}
	return b.String()
}

// MatchCursorUp recognizes a leading cursor-up sequence (ESC [ n A). A
// missing count means one line. It returns the count and the prefix length.
func MatchCursorUp(s string) (count, length int, ok bool) {
	seq, ok := Parse(s)
	if !ok || seq.Kind != KindCSI || seq.Final != 'A' {
		return 0, 0, false
	}
	n, ok := decimalParam(seq.Params, 1)
	if !ok {
		return 0, 0, false
	}
	return n, seq.Len, true
}

// MatchEraseLine recognizes a leading erase-in-line sequence (ESC [ n K).
func MatchEraseLine(s string) (schema.AnsiCommand, int, bool) {
	seq, ok := Parse(s)
	if !ok || seq.Kind != KindCSI || seq.Final != 'K' {
		return schema.AnsiNone, 0, false
	}
	n, ok := decimalParam(seq.Params, 0)
	if !ok {
		return schema.AnsiNone, 0, false
	}
	switch n {
	case 0:
		return schema.AnsiEraseToEnd, seq.Len, true
	case 1:
		return schema.AnsiEraseToStart, seq.Len, true
	case 2:
		return schema.AnsiEraseLine, seq.Len, true
	default:
		return schema.AnsiNone, 0, false
	}
}

func decimalParam(params string, def int) (int, bool) {
	if params == "" {
		return def, true
	}
	for i := 0; i < len(params); i++ {
		if params[i] < '0' || params[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(params)
	if err != nil {
		return 0, false
	}
	return n, true
}

func skipCSI(text string, i int) (int, bool) {
	for i < len(text) {
		b := text[i]
		if b >= 0x40 && b <= 0x7e {
			return i + 1, true
		}
		i++
	}
	return i, false
}

func skipOSC(text string, i int) (end, termLen int, ok bool) {
	for i < len(text) {
		switch text[i] {
		case 0x07:
			return i + 1, 1, true
		case Esc:
			if i+1 < len(text) && text[i+1] == '\\' {
				return i + 2, 2, true
			}
		}
		i++
	}
	return i, 0, false
}
