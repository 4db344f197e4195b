package render

import (
	"encoding/json"
	"io"
	"sync"

	"pkt.systems/procstream/schema"
)

type jsonEvent struct {
	Stream schema.StreamKind `json:"stream"`
	schema.Output
}

// JSONL prints one JSON object per event, EOF sentinels included.
type JSONL struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewJSONL returns a JSON lines renderer writing to w.
func NewJSONL(w io.Writer) *JSONL {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONL{enc: enc}
}

// OnOutput prints one event.
func (j *JSONL) OnOutput(event schema.Output) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	if err := j.enc.Encode(jsonEvent{Stream: event.Stream(), Output: event}); err != nil {
		j.err = err
	}
}

// Err returns the first write failure.
func (j *JSONL) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
