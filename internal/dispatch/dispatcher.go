package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cbegin/midisynth-go/internal/midi"
	"github.com/cbegin/midisynth-go/internal/osc"
	"github.com/cbegin/midisynth-go/internal/params"
	"github.com/cbegin/midisynth-go/internal/queue"
)

// DefaultMaxWait bounds how long the dispatcher sleeps without a wake.
const DefaultMaxWait = 50 * time.Millisecond

// Sink receives finished buffers. Play must not block for the length of
// the sound.
type Sink interface {
	Play(samples []float64, sampleRate int) error
}

// Stats are running totals since the dispatcher was built.
type Stats struct {
	Rendered       uint64
	Failed         uint64
	PlaybackErrors uint64
}

type Option func(*Dispatcher)

func WithMaxWait(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.maxWait = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(disp *Dispatcher) {
		if logger != nil {
			disp.logger = logger
		}
	}
}

func WithRenderOptions(opts RenderOptions) Option {
	return func(disp *Dispatcher) {
		disp.render = opts
	}
}

// Dispatcher is the single consumer of the event queue. Events are rendered
// one at a time in arrival order.
type Dispatcher struct {
	queue   *queue.Queue[midi.NoteEvent]
	params  *params.Store
	sink    Sink
	maxWait time.Duration
	render  RenderOptions
	logger  *slog.Logger

	rendered       atomic.Uint64
	failed         atomic.Uint64
	playbackErrors atomic.Uint64
}

func New(q *queue.Queue[midi.NoteEvent], store *params.Store, sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:   q,
		params:  store,
		sink:    sink,
		maxWait: DefaultMaxWait,
		render:  DefaultRenderOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drains the queue until ctx is done. It wakes on every push and at
// least once per MaxWait. Render and playback failures are logged and
// counted; they never stop the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	tick := time.NewTicker(d.maxWait)
	defer tick.Stop()
	for {
		d.drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-d.queue.Ready():
		case <-tick.C:
		}
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Rendered:       d.rendered.Load(),
		Failed:         d.failed.Load(),
		PlaybackErrors: d.playbackErrors.Load(),
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for ctx.Err() == nil {
		ev, ok := d.queue.Pop()
		if !ok {
			return
		}
		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev midi.NoteEvent) {
	p := d.params.Load()
	buf, err := Render(ev, p, d.render)
	if err != nil {
		d.failed.Add(1)
		d.logger.Warn("render failed", "freq", ev.Frequency, "mode", p.Mode, "err", err)
		return
	}
	d.rendered.Add(1)
	if err := d.sink.Play(buf, osc.SampleRate); err != nil {
		d.playbackErrors.Add(1)
		d.logger.Warn("playback failed", "freq", ev.Frequency, "err", err)
		return
	}
	d.logger.Debug("note played", "freq", ev.Frequency, "velocity", ev.Velocity, "samples", len(buf))
}
