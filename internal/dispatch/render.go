// Package dispatch turns queued note events into sample buffers and hands
// them to an output sink.
package dispatch

import (
	"fmt"

	"github.com/cbegin/midisynth-go/internal/effects"
	"github.com/cbegin/midisynth-go/internal/envelope"
	"github.com/cbegin/midisynth-go/internal/midi"
	"github.com/cbegin/midisynth-go/internal/osc"
	"github.com/cbegin/midisynth-go/internal/params"
)

type RenderOptions struct {
	// ClampAMIndex limits the AM index to [0,1] so the AM output stays
	// within [-1,1].
	ClampAMIndex bool
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{ClampAMIndex: true}
}

// Render produces the buffer for one event under one parameter snapshot.
// The note frequency is the carrier; the snapshot supplies the modulator,
// the index and the effect settings. On error no buffer is returned.
func Render(ev midi.NoteEvent, p params.Parameters, opts RenderOptions) ([]float64, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	var (
		buf []float64
		err error
	)
	switch p.Mode {
	case params.AM:
		index := p.ModulationIndex
		if opts.ClampAMIndex {
			index = min(max(index, 0), 1)
		}
		buf, err = osc.GenerateAM(ev.Frequency, p.ModulatorFrequency, index, ev.Duration)
	case params.FM:
		buf, err = osc.GenerateFM(ev.Frequency, p.ModulatorFrequency, p.ModulationIndex, ev.Duration)
	case params.Raw:
		buf, err = osc.Generate(p.Waveform, ev.Frequency, ev.Duration)
	default:
		err = fmt.Errorf("%w: mode %v", osc.ErrInvalidParameter, p.Mode)
	}
	if err != nil {
		return nil, err
	}

	if p.Envelope.Enabled {
		curve, err := p.Envelope.Curve(len(buf))
		if err != nil {
			return nil, err
		}
		if err := envelope.Apply(buf, curve); err != nil {
			return nil, err
		}
	}

	for i := range buf {
		buf[i] *= ev.Velocity
	}

	if !p.EffectEnabled {
		return buf, nil
	}
	return effects.Apply(buf, p.DistortionAmount, p.Decay)
}
