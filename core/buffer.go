package core

// maxIdleCapacity bounds the memory an empty buffer keeps for reuse.
const maxIdleCapacity = 64 << 10

// buffer holds decoded text of one stream that has not been emitted yet.
// Offsets are byte positions into data. It has a single writer: the
// stream's read loop.
type buffer struct {
	data []byte
	// lineStart is where the next message begins.
	lineStart int
	// scanned is the offset up to which data was checked without finding a
	// boundary. The next scan resumes there.
	scanned int
	// bareCR is the position of the last bare carriage return at or after
	// lineStart, or -1.
	bareCR int
}

func newBuffer() *buffer {
	return &buffer{bareCR: -1}
}

func (b *buffer) append(p []byte) {
	b.data = append(b.data, p...)
}

// Len reports the number of unemitted bytes.
func (b *buffer) Len() int {
	return len(b.data) - b.lineStart
}

// take returns data[lineStart:end] as a message and advances lineStart.
func (b *buffer) take(end int) string {
	msg := string(b.data[b.lineStart:end])
	b.lineStart = end
	if b.scanned < end {
		b.scanned = end
	}
	if b.bareCR < end {
		b.bareCR = -1
	}
	return msg
}

// compact drops emitted bytes so offsets start at zero again.
func (b *buffer) compact() {
	if b.lineStart == 0 {
		return
	}
	n := copy(b.data, b.data[b.lineStart:])
	b.data = b.data[:n]
	b.scanned -= b.lineStart
	if b.bareCR >= 0 {
		b.bareCR -= b.lineStart
	}
	b.lineStart = 0
	if n == 0 && cap(b.data) > maxIdleCapacity {
		b.data = nil
	}
}

func (b *buffer) reset() {
	b.data = b.data[:0]
	b.lineStart = 0
	b.scanned = 0
	b.bareCR = -1
}
