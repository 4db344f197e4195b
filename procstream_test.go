package procstream

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/procstream/core"
	"pkt.systems/procstream/internal/appconfig"
	"pkt.systems/procstream/schema"
)

type recorder struct {
	mu     sync.Mutex
	events []Output
}

func (r *recorder) OnOutput(out Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, out)
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if !ev.EOF && ev.Apc == nil {
			out = append(out, ev.Text)
		}
	}
	return out
}

func TestReadStreamDeliversEventsAndEOF(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var rec recorder
	err := ReadStream(ctx, strings.NewReader("one\r\ntwo\nthree"), rec.OnOutput, WithBufferSize(64))
	require.NoError(t, err)

	assert.Equal(t, []string{"one\r\n", "two\n", "three"}, rec.texts())
	require.NotEmpty(t, rec.events)
	assert.True(t, rec.events[len(rec.events)-1].EOF)
}

func TestReadStreamStopsDeliveringAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pr, pw := io.Pipe()
	defer pr.Close()
	go func() {
		_, _ = pw.Write([]byte("early\n"))
	}()

	var rec recorder
	err := ReadStream(ctx, pr, func(out Output) {
		rec.OnOutput(out)
		if out.Text == "early\n" {
			cancel()
		}
	}, WithBufferSize(64))
	require.ErrorIs(t, err, context.Canceled)

	go func() {
		_, _ = pw.Write([]byte("late\n"))
		_ = pw.Close()
	}()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"early\n"}, rec.texts())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, ev := range rec.events {
		assert.False(t, ev.EOF, "no events after ReadStream returned")
	}
}

func TestReadStreamParsesFormattedApc(t *testing.T) {
	frame, err := FormatApc(ApcMessage{Type: schema.ApcInput, Data: "password?"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var rec recorder
	require.NoError(t, ReadStream(ctx, strings.NewReader("before\n"+frame+"after\n"), rec.OnOutput, WithStdErr(true)))

	var apcs []ApcMessage
	for _, ev := range rec.events {
		assert.True(t, ev.IsStdErr)
		if ev.Apc != nil {
			apcs = append(apcs, *ev.Apc)
		}
	}
	assert.Equal(t, []ApcMessage{{Type: schema.ApcInput, Data: "password?"}}, apcs)
	assert.Equal(t, []string{"before\n", "after\n"}, rec.texts())
}

func TestTeeSkipsNilSinks(t *testing.T) {
	var first, second recorder
	handler := Tee(&first, nil, core.SinkFunc(second.OnOutput))
	handler(Output{Text: "x"})

	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestNewRunnerFromConfigRejectsInvalidConfig(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	cfg.Reader.Encoding = "klingon"
	_, err := NewRunnerFromConfig(cfg)
	assert.Error(t, err)

	runner, err := NewRunnerFromConfig(appconfig.DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestCommandFromConfig(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	cfg.Process.Dir = "/tmp"
	cfg.Process.PTY = true
	cfg.Process.Env = []string{"A=1"}

	cmd := CommandFromConfig(cfg, "make", "test")
	assert.Equal(t, Command{Name: "make", Args: []string{"test"}, Dir: "/tmp", Env: map[string]string{"A": "1"}, PTY: true}, cmd)
}
