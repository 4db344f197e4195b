package core

import (
	"bytes"

	"pkt.systems/procstream/internal/ansi"
	"pkt.systems/procstream/internal/apc"
)

// Mode is the state a Segmenter carries from one read to the next.
type Mode uint8

const (
	// ModeNormal scans the buffer for boundaries.
	ModeNormal Mode = iota
	// ModeForceFlushNext emits the next non-empty chunk whole, unless it
	// contains an APC marker. Set after a complete APC frame.
	ModeForceFlushNext
	// ModePendingCRLF means the previous chunk ended with a carriage return
	// that was already emitted. A line feed opening the next chunk completes
	// that CRLF and is emitted on its own.
	ModePendingCRLF
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeForceFlushNext:
		return "force_flush_next"
	case ModePendingCRLF:
		return "pending_crlf"
	default:
		return "unknown"
	}
}

var (
	apcMarker = []byte(apc.Marker)
	apcHead   = apc.Marker + apc.Prefix
	apcEnd    = []byte(apc.Terminator)
)

// Segmenter splits decoded stream text into raw messages at line
// terminators, bare carriage returns, escape sequences and APC frames.
// It is not safe for concurrent use.
type Segmenter struct {
	buf  *buffer
	mode Mode
}

// NewSegmenter returns an empty segmenter in ModeNormal.
func NewSegmenter() *Segmenter {
	return &Segmenter{buf: newBuffer()}
}

// Mode reports the carried state.
func (s *Segmenter) Mode() Mode {
	return s.mode
}

// Buffered reports how many decoded bytes wait for a boundary.
func (s *Segmenter) Buffered() int {
	return s.buf.Len()
}

// Feed appends decoded text and returns the messages it completes, in
// order. An empty feed still rescans an unresolved APC marker.
func (s *Segmenter) Feed(text []byte) []string {
	var out []string
	if len(text) > 0 {
		switch s.mode {
		case ModePendingCRLF:
			s.mode = ModeNormal
			if text[0] == '\n' && s.buf.Len() == 0 {
				out = append(out, "\n")
				text = text[1:]
			}
		case ModeForceFlushNext:
			s.mode = ModeNormal
			if s.buf.Len() == 0 && !bytes.Contains(text, apcMarker) {
				return append(out, string(text))
			}
		}
	}
	s.buf.append(text)
	out = s.scan(out)
	s.buf.compact()
	return out
}

// Finish flushes everything still buffered, plus tail, as one message. It
// is called once at end of stream and resets the segmenter.
func (s *Segmenter) Finish(tail []byte) []string {
	s.buf.append(tail)
	var out []string
	if s.buf.Len() > 0 {
		out = append(out, s.buf.take(len(s.buf.data)))
	}
	s.buf.reset()
	s.mode = ModeNormal
	return out
}

func (s *Segmenter) scan(out []string) []string {
	b := s.buf
	data := b.data
	stop := len(data)
	i := b.scanned
	if i < b.lineStart {
		i = b.lineStart
	}
scan:
	for i < len(data) {
		switch c := data[i]; {
		case c == '\n':
			out = append(out, b.take(i+1))
			i++
		case c == '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				out = append(out, b.take(i+2))
				i += 2
				continue
			}
			b.bareCR = i
			i++
		case c == ansi.Esc:
			if i > b.lineStart {
				out = append(out, b.take(i))
			}
			i++
		case bytes.HasPrefix(data[i:], apcMarker):
			head := string(data[i:min(len(data), i+len(apcHead))])
			switch apc.MatchPrefix(head) {
			case apc.MatchNone:
				i += len(apcMarker)
				continue
			case apc.MatchPartial:
				stop = i
				break scan
			}
			rel := bytes.Index(data[i+len(apcHead):], apcEnd)
			if rel < 0 {
				stop = i
				break scan
			}
			end := i + len(apcHead) + rel + len(apcEnd)
			if i > b.lineStart {
				out = append(out, b.take(i))
			}
			out = append(out, b.take(end))
			i = end
			if bytes.Contains(data[end:], apcMarker) {
				continue
			}
			if end < len(data) {
				out = append(out, b.take(len(data)))
			}
			s.mode = ModeForceFlushNext
			return out
		default:
			i++
		}
	}
	b.scanned = stop
	if b.bareCR >= b.lineStart && stop > b.lineStart {
		out = append(out, b.take(stop))
		if stop == len(data) && data[stop-1] == '\r' {
			s.mode = ModePendingCRLF
		}
	}
	return out
}
