package audio

import (
	"fmt"
	"sync"
)

// deviceContext holds a process-wide backend context. Backends allow one per
// process, so the first caller fixes the sample rate and a failed open is
// sticky.
type deviceContext[C any] struct {
	name string

	once sync.Once
	ctx  C
	err  error
	rate int
}

func (d *deviceContext[C]) get(sampleRate int, open func(int) (C, error)) (C, error) {
	d.once.Do(func() {
		d.rate = sampleRate
		d.ctx, d.err = open(sampleRate)
		if d.err != nil {
			d.err = fmt.Errorf("%w: %s: %w", ErrPlayback, d.name, d.err)
		}
	})
	var zero C
	if d.err != nil {
		return zero, d.err
	}
	if d.rate != sampleRate {
		return zero, fmt.Errorf("%w: %s context already initialized at %d Hz (requested %d Hz)",
			ErrPlayback, d.name, d.rate, sampleRate)
	}
	return d.ctx, nil
}
