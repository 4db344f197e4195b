// Package decoder converts raw process output bytes into UTF-8 text while
// holding back multi-byte sequences split across reads.
package decoder

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned by Lookup for unsupported encoding names.
var ErrUnknownEncoding = errors.New("unknown encoding")

// DefaultEncoding is used when no encoding is configured.
var DefaultEncoding encoding.Encoding = unicode.UTF8

const replacement = "\uFFFD"

// Lookup resolves an encoding name from configuration.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "cp437", "ibm437":
		return charmap.CodePage437, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// Decoder is a stateful byte-to-UTF-8 decoder. It is not safe for
// concurrent use; each stream owns one.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// New returns a decoder for enc, or for UTF-8 when enc is nil.
func New(enc encoding.Encoding) *Decoder {
	if enc == nil {
		enc = DefaultEncoding
	}
	t := enc.NewDecoder()
	t.Reset()
	return &Decoder{t: t}
}

// Decode returns the decodable prefix of the held bytes plus p. A trailing
// incomplete sequence is kept for the next call. The returned slice is
// owned by the caller.
func (d *Decoder) Decode(p []byte) []byte {
	return d.decode(p, false)
}

// Flush decodes any held bytes at end of stream. Incomplete sequences
// become U+FFFD.
func (d *Decoder) Flush() []byte {
	out := d.decode(nil, true)
	d.t.Reset()
	return out
}

// Pending reports how many bytes are held back waiting for more input.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) decode(p []byte, atEOF bool) []byte {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}
	if len(src) == 0 {
		return nil
	}
	out := make([]byte, 0, len(src))
	for {
		// One source byte decodes to at most one rune.
		if need := len(src)*utf8.UTFMax + utf8.UTFMax; cap(d.dst) < need {
			d.dst = make([]byte, need)
		}
		dst := d.dst[:cap(d.dst)]
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]
		switch {
		case err == nil:
			return out
		case errors.Is(err, transform.ErrShortSrc):
			if atEOF {
				// Not expected from the x/text decoders, but never drop bytes.
				for range src {
					out = append(out, replacement...)
				}
				return out
			}
			d.pending = append([]byte(nil), src...)
			return out
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*cap(d.dst))
			}
		default:
			// Substitute for the offending byte and carry on.
			out = append(out, replacement...)
			if len(src) > 0 {
				src = src[1:]
			}
			if len(src) == 0 {
				return out
			}
		}
	}
}
