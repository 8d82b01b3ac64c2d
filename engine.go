package midisynth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	intaudio "github.com/cbegin/midisynth-go/internal/audio"
	intbackend "github.com/cbegin/midisynth-go/internal/audio/backend"
	intdisp "github.com/cbegin/midisynth-go/internal/dispatch"
	intmidi "github.com/cbegin/midisynth-go/internal/midi"
	intosc "github.com/cbegin/midisynth-go/internal/osc"
	intparams "github.com/cbegin/midisynth-go/internal/params"
	intqueue "github.com/cbegin/midisynth-go/internal/queue"
)

// SampleRate is the fixed rate of every rendered buffer.
const SampleRate = intosc.SampleRate

type (
	NoteEvent      = intmidi.NoteEvent
	Parameters     = intparams.Parameters
	Mode           = intparams.Mode
	Waveform       = intosc.Waveform
	Sink           = intaudio.Sink
	Port           = intmidi.Port
	SourceState    = intmidi.State
	OverflowPolicy = intqueue.Policy
)

const (
	ModeFM  = intparams.FM
	ModeAM  = intparams.AM
	ModeRaw = intparams.Raw

	Sine     = intosc.Sine
	Square   = intosc.Square
	Sawtooth = intosc.Sawtooth
	Triangle = intosc.Triangle

	DropOldest   = intqueue.DropOldest
	RejectNewest = intqueue.RejectNewest
)

var (
	ErrInvalidParameter = intosc.ErrInvalidParameter
	ErrDevice           = intmidi.ErrDevice
	ErrPlayback         = intaudio.ErrPlayback
	ErrQueueFull        = intqueue.ErrFull
	ErrClosed           = intqueue.ErrClosed
)

func DefaultParameters() Parameters { return intparams.Default() }

// NewNoteEvent validates and builds a NoteEvent.
func NewNoteEvent(frequency, velocity, duration float64) (NoteEvent, error) {
	return intmidi.NewNoteEvent(frequency, velocity, duration)
}

// NoteToFreq converts a MIDI note number to Hz.
func NoteToFreq(note int) float64 { return intmidi.NoteToFreq(note) }

// ListPorts names the MIDI inputs of the registered gomidi driver.
func ListPorts() []string { return intmidi.ListPorts() }

type Option func(*engineConfig)

type engineConfig struct {
	sink          Sink
	logger        *slog.Logger
	queueCapacity int
	queuePolicy   OverflowPolicy
	noteDuration  time.Duration
	maxWait       time.Duration
	open          intmidi.Opener
	params        Parameters
	clampAMIndex  bool
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:        slog.Default(),
		queueCapacity: 256,
		queuePolicy:   DropOldest,
		noteDuration:  500 * time.Millisecond,
		maxWait:       intdisp.DefaultMaxWait,
		open:          intmidi.OpenPort,
		params:        intparams.Default(),
		clampAMIndex:  true,
	}
}

// WithSink sets the output. Without it New opens the ebiten backend.
func WithSink(sink Sink) Option {
	return func(cfg *engineConfig) {
		cfg.sink = sink
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithQueue bounds the event queue. A capacity of zero means unbounded.
func WithQueue(capacity int, policy OverflowPolicy) Option {
	return func(cfg *engineConfig) {
		cfg.queueCapacity = capacity
		cfg.queuePolicy = policy
	}
}

// WithNoteDuration sets the length of notes triggered by MIDI input and
// Audition.
func WithNoteDuration(d time.Duration) Option {
	return func(cfg *engineConfig) {
		cfg.noteDuration = d
	}
}

// WithMaxWait bounds how long the dispatcher sleeps between wakes.
func WithMaxWait(d time.Duration) Option {
	return func(cfg *engineConfig) {
		cfg.maxWait = d
	}
}

// WithPortOpener replaces the gomidi port lookup, mainly for tests.
func WithPortOpener(open func(name string) (Port, error)) Option {
	return func(cfg *engineConfig) {
		if open != nil {
			cfg.open = open
		}
	}
}

func WithParameters(p Parameters) Option {
	return func(cfg *engineConfig) {
		cfg.params = p
	}
}

// WithAMIndexClamp controls whether the AM index is limited to [0,1] before
// rendering. It is on by default.
func WithAMIndexClamp(enabled bool) Option {
	return func(cfg *engineConfig) {
		cfg.clampAMIndex = enabled
	}
}

// Stats are running totals for an engine.
type Stats struct {
	Rendered       uint64
	Failed         uint64
	PlaybackErrors uint64
	Dropped        uint64
	Pending        int
}

// Engine owns the event queue, the parameter store, the dispatcher and the
// MIDI sources feeding them.
type Engine struct {
	logger       *slog.Logger
	sink         Sink
	store        *intparams.Store
	queue        *intqueue.Queue[NoteEvent]
	dispatcher   *intdisp.Dispatcher
	open         intmidi.Opener
	noteDuration float64

	mu      sync.Mutex
	sources map[string]*intmidi.Source
	closed  bool
}

func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.noteDuration <= 0 {
		return nil, fmt.Errorf("%w: note duration %v", ErrInvalidParameter, cfg.noteDuration)
	}
	if cfg.maxWait <= 0 {
		return nil, fmt.Errorf("%w: max wait %v", ErrInvalidParameter, cfg.maxWait)
	}
	store, err := intparams.NewStore(cfg.params)
	if err != nil {
		return nil, err
	}
	sink := cfg.sink
	if sink == nil {
		sink, err = intaudio.Open(intbackend.Ebiten, SampleRate)
		if err != nil {
			return nil, err
		}
	}
	q := intqueue.New[NoteEvent](cfg.queueCapacity, cfg.queuePolicy)
	disp := intdisp.New(q, store, sink,
		intdisp.WithMaxWait(cfg.maxWait),
		intdisp.WithLogger(cfg.logger),
		intdisp.WithRenderOptions(intdisp.RenderOptions{ClampAMIndex: cfg.clampAMIndex}),
	)
	return &Engine{
		logger:       cfg.logger,
		sink:         sink,
		store:        store,
		queue:        q,
		dispatcher:   disp,
		open:         cfg.open,
		noteDuration: cfg.noteDuration.Seconds(),
		sources:      make(map[string]*intmidi.Source),
	}, nil
}

// Parameters returns the current snapshot.
func (e *Engine) Parameters() Parameters { return e.store.Load() }

// SetParameters publishes p for every render that starts after it returns.
func (e *Engine) SetParameters(p Parameters) error { return e.store.Set(p) }

// UpdateParameters edits a copy of the current snapshot and publishes it.
func (e *Engine) UpdateParameters(fn func(*Parameters)) error { return e.store.Update(fn) }

// Enqueue adds ev to the render queue. Invalid events are rejected here so
// the dispatcher only sees renderable work.
func (e *Engine) Enqueue(ev NoteEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	return e.queue.Push(ev)
}

// Audition queues a note at the current carrier frequency.
func (e *Engine) Audition(velocity float64) error {
	ev, err := intmidi.NewNoteEvent(e.store.Load().CarrierFrequency, velocity, e.noteDuration)
	if err != nil {
		return err
	}
	return e.queue.Push(ev)
}

// StartSource opens the named MIDI input and starts queueing its note-ons.
// Several ports may be open at once; each runs its own listener.
func (e *Engine) StartSource(port string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	src, ok := e.sources[port]
	if !ok {
		src = intmidi.NewSource(e.open, e.queue.Push,
			intmidi.WithNoteDuration(e.noteDuration),
			intmidi.WithLogger(e.logger))
		e.sources[port] = src
	}
	return src.Start(port)
}

// StopSource stops the named input. No event from it is queued after
// StopSource returns.
func (e *Engine) StopSource(port string) error {
	e.mu.Lock()
	src, ok := e.sources[port]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return src.Stop()
}

// SourceState reports the named input's state; unknown ports are idle.
func (e *Engine) SourceState(port string) SourceState {
	e.mu.Lock()
	src, ok := e.sources[port]
	e.mu.Unlock()
	if !ok {
		return intmidi.Idle
	}
	return src.State()
}

// SourceErr returns the failure of a source in the error state.
func (e *Engine) SourceErr(port string) error {
	e.mu.Lock()
	src, ok := e.sources[port]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return src.Err()
}

// Run dispatches queued events until ctx is done, then stops every source.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.dispatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return e.stopSources()
	})
	return g.Wait()
}

func (e *Engine) Stats() Stats {
	d := e.dispatcher.Stats()
	return Stats{
		Rendered:       d.Rendered,
		Failed:         d.Failed,
		PlaybackErrors: d.PlaybackErrors,
		Dropped:        e.queue.Dropped(),
		Pending:        e.queue.Len(),
	}
}

// Close stops all sources, refuses further events and releases the sink if
// it holds a device.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	err := e.stopSources()
	e.queue.Close()
	if c, ok := e.sink.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (e *Engine) stopSources() error {
	e.mu.Lock()
	srcs := make([]*intmidi.Source, 0, len(e.sources))
	for _, src := range e.sources {
		srcs = append(srcs, src)
	}
	e.mu.Unlock()

	var errs []error
	for _, src := range srcs {
		if err := src.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
