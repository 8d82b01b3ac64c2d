package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// inPort adapts a gomidi input to the blocking Port interface. The driver
// callback hands copies of each message to Receive through a channel.
type inPort struct {
	in     drivers.In
	stop   func()
	msgs   chan gomidi.Message
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

// OpenPort opens the first input port whose name contains name, using the
// registered gomidi driver. Callers must import a driver package such as
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
func OpenPort(name string) (Port, error) {
	in, err := gomidi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("%w: find %q: %w", ErrDevice, name, err)
	}
	p := &inPort{
		in:     in,
		msgs:   make(chan gomidi.Message, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	stop, err := gomidi.ListenTo(in, p.receive, gomidi.HandleError(p.fail))
	if err != nil {
		return nil, fmt.Errorf("%w: listen %q: %w", ErrDevice, in.String(), err)
	}
	p.stop = stop
	return p, nil
}

// ListPorts returns the names of all MIDI input ports.
func ListPorts() []string {
	var names []string
	for _, in := range gomidi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

func (p *inPort) receive(msg gomidi.Message, _ int32) {
	m := append(gomidi.Message(nil), msg...)
	select {
	case p.msgs <- m:
	case <-p.closed:
	}
}

func (p *inPort) fail(err error) {
	select {
	case p.errs <- err:
	default:
	}
}

func (p *inPort) Receive() (gomidi.Message, error) {
	select {
	case m := <-p.msgs:
		return m, nil
	case err := <-p.errs:
		return nil, err
	case <-p.closed:
		return nil, ErrPortClosed
	}
}

func (p *inPort) Close() error {
	var err error
	p.once.Do(func() {
		close(p.closed)
		if p.stop != nil {
			p.stop()
		}
		err = p.in.Close()
	})
	return err
}
