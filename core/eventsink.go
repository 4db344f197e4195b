package core

import "pkt.systems/procstream/schema"

// OutputSink receives output events from a reader or a process.
type OutputSink interface {
	OnOutput(event schema.Output)
}

// SinkFunc adapts a Handler to OutputSink.
type SinkFunc Handler

// OnOutput calls f.
func (f SinkFunc) OnOutput(event schema.Output) {
	f(event)
}
