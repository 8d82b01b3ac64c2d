package midi

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	// ErrDevice reports a MIDI port that could not be opened or failed while listening.
	ErrDevice = errors.New("midi device error")
	// ErrPortClosed is returned by Port.Receive after Close.
	ErrPortClosed = errors.New("midi port closed")
	// ErrAlreadyListening is returned by Start on a source that is already running.
	ErrAlreadyListening = errors.New("midi source already listening")
	// ErrStopping is returned by Start while a Stop on the same source is
	// still waiting for its listener to exit.
	ErrStopping = errors.New("midi source stopping")
)

// DefaultNoteDuration is the length in seconds given to every note event.
const DefaultNoteDuration = 0.5

// State is the lifecycle state of a Source.
type State int32

const (
	Idle State = iota
	Listening
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Failed:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Port is an open MIDI input. Receive blocks until a message arrives, the
// port fails, or Close is called.
type Port interface {
	Receive() (gomidi.Message, error)
	Close() error
}

// Opener opens the named input port.
type Opener func(name string) (Port, error)

type SourceOption func(*Source)

// WithNoteDuration sets the duration in seconds of emitted events.
func WithNoteDuration(seconds float64) SourceOption {
	return func(s *Source) {
		if seconds > 0 {
			s.duration = seconds
		}
	}
}

func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Source listens on one MIDI input port and emits a NoteEvent for every
// note-on with non-zero velocity.
type Source struct {
	open     Opener
	emit     func(NoteEvent) error
	duration float64
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	name     string
	port     Port
	stopping bool
	err      error
	done     chan struct{}
}

// NewSource builds an idle source. emit is called from the listening
// goroutine and must not block.
func NewSource(open Opener, emit func(NoteEvent) error, opts ...SourceOption) *Source {
	s := &Source{
		open:     open,
		emit:     emit,
		duration: DefaultNoteDuration,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the named port and begins listening in a new goroutine.
// Open failures are returned wrapped in ErrDevice and leave the source idle.
func (s *Source) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Listening {
		return fmt.Errorf("%w: %s", ErrAlreadyListening, s.name)
	}
	if s.stopping && s.state != Idle {
		return fmt.Errorf("%w: %s", ErrStopping, s.name)
	}
	s.state = Idle
	s.err = nil
	port, err := s.open(name)
	if err != nil {
		if errors.Is(err, ErrDevice) {
			return err
		}
		return fmt.Errorf("%w: open %q: %w", ErrDevice, name, err)
	}
	s.state = Listening
	s.name = name
	s.port = port
	s.stopping = false
	s.done = make(chan struct{})
	s.logger.Info("midi source listening", "port", name)
	go s.listen(port, name, s.done)
	return nil
}

// Stop closes the port and waits for the listening goroutine to exit. No
// event is emitted after Stop returns. Stopping an idle source is a no-op.
func (s *Source) Stop() error {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	port, done, name := s.port, s.done, s.name
	s.mu.Unlock()

	var err error
	if port != nil {
		err = port.Close()
	}
	<-done

	s.mu.Lock()
	if s.done == done {
		s.state = Idle
		s.port = nil
	}
	s.mu.Unlock()
	s.logger.Info("midi source stopped", "port", name)
	return err
}

func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that moved the source to the error state, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when the listening goroutine exits. It is nil before the
// first successful Start.
func (s *Source) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Source) listen(port Port, name string, done chan struct{}) {
	defer close(done)
	for {
		msg, err := port.Receive()
		if err != nil {
			s.fail(port, name, err)
			return
		}
		ev, ok := Classify(msg, s.duration)
		if !ok {
			continue
		}
		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			return
		}
		err = s.emit(ev)
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("note event not queued", "port", name, "freq", ev.Frequency, "err", err)
		}
	}
}

func (s *Source) fail(port Port, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return
	}
	s.state = Failed
	s.err = fmt.Errorf("%w: %s: %w", ErrDevice, name, err)
	s.logger.Error("midi source failed", "port", name, "err", err)
	_ = port.Close()
}
