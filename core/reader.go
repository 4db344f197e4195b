package core

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/encoding"
	"pkt.systems/pslog"

	"pkt.systems/procstream/internal/decoder"
	"pkt.systems/procstream/internal/logx"
	"pkt.systems/procstream/schema"
)

// DefaultBufferSize is the read size used when none is configured.
const DefaultBufferSize = 1024

// Handler receives output events in stream order. It is never invoked
// concurrently for one Reader.
type Handler func(schema.Output)

// ReaderOption configures a Reader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	isStdErr   bool
	enc        encoding.Encoding
	bufferSize int
	log        pslog.Logger
}

// WithStdErr marks the events of the reader as coming from standard error.
func WithStdErr(isStdErr bool) ReaderOption {
	return func(o *readerOptions) { o.isStdErr = isStdErr }
}

// WithEncoding sets the byte encoding of the source (UTF-8 by default).
func WithEncoding(enc encoding.Encoding) ReaderOption {
	return func(o *readerOptions) { o.enc = enc }
}

// WithBufferSize sets the size of each read.
func WithBufferSize(n int) ReaderOption {
	return func(o *readerOptions) { o.bufferSize = n }
}

// WithLogger sets the logger. Without it the logger bound to the Start
// context is used.
func WithLogger(log pslog.Logger) ReaderOption {
	return func(o *readerOptions) { o.log = log }
}

type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// Reader reads one output stream of a child process and delivers it as
// Output events. Every stream ends with an Output whose EOF is set, unless
// the handler panicked.
type Reader struct {
	src      io.Reader
	handler  Handler
	opts     readerOptions
	stream   schema.StreamKind
	log      pslog.Logger
	decoder  *decoder.Decoder
	seg      *Segmenter
	interp   *Interpreter
	queue    messageQueue
	started  atomic.Bool
	canceled atomic.Bool
	failed   atomic.Bool
	draining atomic.Bool
	done     chan struct{}

	errMu     sync.Mutex
	err       error
	errs      chan error
	errClosed bool
}

// NewReader prepares a reader of src. Nothing is read until Start.
func NewReader(src io.Reader, handler Handler, opts ...ReaderOption) *Reader {
	options := readerOptions{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&options)
	}
	if options.bufferSize <= 0 {
		options.bufferSize = DefaultBufferSize
	}
	if handler == nil {
		handler = func(schema.Output) {}
	}
	return &Reader{
		src:     src,
		handler: handler,
		opts:    options,
		stream:  schema.StreamFor(options.isStdErr),
		decoder: decoder.New(options.enc),
		seg:     NewSegmenter(),
		done:    make(chan struct{}),
		errs:    make(chan error, 1),
	}
}

// Start launches the read loop. Canceling ctx ends the stream as if the
// source had reached EOF; sources with read deadlines are interrupted.
func (r *Reader) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return schema.ErrAlreadyStarted
	}
	log := r.opts.log
	if log == nil {
		log = logx.Ctx(ctx)
	}
	r.log = logx.WithStream(log, r.stream)
	r.interp = NewInterpreter(r.log)
	go r.run(ctx)
	return nil
}

// Cancel stops delivering events. Reading continues so the writer never
// blocks; messages queue up until Resume.
func (r *Reader) Cancel() {
	r.canceled.Store(true)
}

// Resume restarts delivery after Cancel, flushing queued messages first.
func (r *Reader) Resume() {
	r.canceled.Store(false)
	r.drain()
}

// Done is closed once the read loop has ended.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Errors reports handler failures. It is closed when the read loop ends.
func (r *Reader) Errors() <-chan error {
	return r.errs
}

// Err returns the handler failure that stopped delivery, if any.
func (r *Reader) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// Wait blocks until the read loop ends and returns Err. If ctx ends first
// it returns ctx.Err() at once and the loop may still deliver; use Cancel to
// stop delivery.
func (r *Reader) Wait(ctx context.Context) error {
	if !r.started.Load() {
		return schema.ErrNotStarted
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return r.Err()
	}
}

func (r *Reader) run(ctx context.Context) {
	defer close(r.done)
	defer r.closeErrors()
	if dr, ok := r.src.(deadlineReader); ok {
		stop := context.AfterFunc(ctx, func() {
			_ = dr.SetReadDeadline(time.Now())
		})
		defer stop()
	}
	r.log.Debug("stream reader started", "buffer_size", r.opts.bufferSize)

	buf := make([]byte, r.opts.bufferSize)
	reads := 0
	for {
		n, err := r.src.Read(buf)
		if n > 0 || err == nil {
			reads++
			r.queue.pushMessages(r.seg.Feed(r.decoder.Decode(buf[:n])))
			r.drain()
		}
		if r.failed.Load() {
			r.discard()
			return
		}
		if err != nil {
			r.logEnd(err, reads)
			break
		}
		if ctx.Err() != nil {
			r.logEnd(ctx.Err(), reads)
			break
		}
	}
	r.queue.pushMessages(r.seg.Finish(r.decoder.Flush()))
	r.queue.push(queueItem{eof: true})
	r.drain()
}

func (r *Reader) logEnd(err error, reads int) {
	switch {
	case errors.Is(err, io.EOF):
		r.log.Debug("stream reader reached eof", "reads", reads)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		r.log.Debug("stream reader canceled", "reads", reads, "err", err)
	default:
		// Read failures end the stream like EOF.
		r.log.Debug("stream reader failed", "reads", reads, "err", err)
	}
}

// drain delivers queued messages until the queue is empty, delivery is
// canceled or the handler fails. Only one goroutine delivers at a time.
func (r *Reader) drain() {
	for {
		if !r.draining.CompareAndSwap(false, true) {
			return
		}
		for !r.canceled.Load() && !r.failed.Load() {
			item, ok := r.queue.pop()
			if !ok {
				break
			}
			r.deliver(item)
		}
		r.draining.Store(false)
		// Pick up messages queued while another goroutine held delivery.
		if r.canceled.Load() || r.failed.Load() || r.queue.size() == 0 {
			return
		}
	}
}

func (r *Reader) deliver(item queueItem) {
	var out schema.Output
	if item.eof {
		out = schema.Output{IsStdErr: r.opts.isStdErr, EOF: true}
	} else {
		out = r.interp.Interpret(item.raw, r.opts.isStdErr)
		r.log.Trace("stream message", "text_len", len(out.Text), "preview", previewText(out.Text, 200), "clear_lines", out.ClearLines, "cursor_up", out.CursorUp, "apc", out.Apc != nil)
	}
	defer func() {
		if v := recover(); v != nil {
			r.fail(&schema.CallbackError{Stream: r.stream, Value: v, Stack: debug.Stack()})
		}
	}()
	r.handler(out)
}

func (r *Reader) fail(err *schema.CallbackError) {
	r.failed.Store(true)
	r.queue.clear()
	r.log.Warn("output handler panicked", "err", err)
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err != nil {
		return
	}
	r.err = err
	if !r.errClosed {
		select {
		case r.errs <- err:
		default:
		}
	}
}

func (r *Reader) closeErrors() {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if !r.errClosed {
		r.errClosed = true
		close(r.errs)
	}
}

// discard reads the source to its end so the writer does not block on a
// full pipe once delivery has stopped.
func (r *Reader) discard() {
	n, err := io.Copy(io.Discard, r.src)
	r.log.Debug("stream reader discarded output", "bytes", n, "err", err)
}
