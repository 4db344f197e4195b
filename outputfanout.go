package procstream

import (
	"pkt.systems/procstream/core"
	"pkt.systems/procstream/schema"
)

type outputFanout struct {
	sinks []core.OutputSink
}

func (f outputFanout) OnOutput(event schema.Output) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnOutput(event)
	}
}

// Tee returns a handler passing every event to each sink in order. Nil
// sinks are skipped.
func Tee(sinks ...core.OutputSink) core.Handler {
	fanout := outputFanout{sinks: append([]core.OutputSink(nil), sinks...)}
	return fanout.OnOutput
}
