package logx

import (
	"context"
	"io"

	"pkt.systems/procstream/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	processKey contextKey = iota
	streamKey
)

// Ctx returns the logger bound to the provided context, or a logger that
// drops everything when none is bound.
func Ctx(ctx context.Context) pslog.Logger {
	if ctx != nil {
		if log := pslog.Ctx(ctx); log != nil {
			return log
		}
	}
	return Discard()
}

// Discard returns a logger that writes nowhere.
func Discard() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.ErrorLevel,
	})
}

// WithProcess annotates the logger with the run id and process name.
func WithProcess(log pslog.Logger, id schema.ProcessID, name string) pslog.Logger {
	if id != "" {
		log = log.With("run", id)
	}
	if name != "" {
		log = log.With("process", name)
	}
	return log
}

// WithStream annotates the logger with the output stream.
func WithStream(log pslog.Logger, stream schema.StreamKind) pslog.Logger {
	if stream != "" {
		log = log.With("stream", stream)
	}
	return log
}

// FromContext returns the context logger annotated with the process and
// stream markers stored by ContextWithProcess and ContextWithStream.
func FromContext(ctx context.Context) pslog.Logger {
	log := Ctx(ctx)
	if ctx == nil {
		return log
	}
	if id, ok := ctx.Value(processKey).(schema.ProcessID); ok {
		log = WithProcess(log, id, "")
	}
	if stream, ok := ctx.Value(streamKey).(schema.StreamKind); ok {
		log = WithStream(log, stream)
	}
	return log
}

// ContextWithProcess stores the run id on the context.
func ContextWithProcess(ctx context.Context, id schema.ProcessID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, processKey, id)
}

// ContextWithStream stores the stream marker on the context.
func ContextWithStream(ctx context.Context, stream schema.StreamKind) context.Context {
	if ctx == nil || stream == "" {
		return ctx
	}
	return context.WithValue(ctx, streamKey, stream)
}

// ContextWithProcessLogger attaches the logger and run id to the context.
func ContextWithProcessLogger(ctx context.Context, log pslog.Logger, id schema.ProcessID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithProcess(ctx, id)
}
