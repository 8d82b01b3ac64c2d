// Package params holds the live synthesis parameters shared between the
// control layer and the render dispatcher.
package params

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cbegin/midisynth-go/internal/envelope"
	"github.com/cbegin/midisynth-go/internal/osc"
)

// Mode selects the generation path for a note.
type Mode int

const (
	FM Mode = iota
	AM
	Raw
)

func (m Mode) String() string {
	switch m {
	case FM:
		return "fm"
	case AM:
		return "am"
	case Raw:
		return "raw"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fm":
		return FM, nil
	case "am":
		return AM, nil
	case "raw", "waveform":
		return Raw, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q (expected fm|am|raw)", osc.ErrInvalidParameter, s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Envelope enables the ADSR shaper on rendered notes. It is off by default.
type Envelope struct {
	Enabled bool `json:"enabled"`
	envelope.ADSR
}

// Parameters is one immutable snapshot of the control surface.
type Parameters struct {
	Mode               Mode         `json:"mode"`
	Waveform           osc.Waveform `json:"waveform"`
	CarrierFrequency   float64      `json:"carrierFrequency"`
	ModulatorFrequency float64      `json:"modulatorFrequency"`
	ModulationIndex    float64      `json:"modulationIndex"`
	DistortionAmount   float64      `json:"distortionAmount"`
	Decay              float64      `json:"decay"`
	EffectEnabled      bool         `json:"effectEnabled"`
	Envelope           Envelope     `json:"envelope"`
}

// Default mirrors the control panel's initial dial positions.
func Default() Parameters {
	return Parameters{
		Mode:               FM,
		Waveform:           osc.Sine,
		CarrierFrequency:   500,
		ModulatorFrequency: 50,
		ModulationIndex:    2,
		DistortionAmount:   0.3,
		Decay:              0.6,
		EffectEnabled:      true,
		Envelope: Envelope{
			ADSR: envelope.ADSR{Attack: 0.1, Decay: 0.1, Sustain: 0.7, Release: 0.2},
		},
	}
}

func (p Parameters) Validate() error {
	if p.Mode < FM || p.Mode > Raw {
		return fmt.Errorf("%w: mode %d", osc.ErrInvalidParameter, int(p.Mode))
	}
	if !p.Waveform.Valid() {
		return fmt.Errorf("%w: waveform %d", osc.ErrInvalidParameter, int(p.Waveform))
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"carrier frequency", p.CarrierFrequency},
		{"modulator frequency", p.ModulatorFrequency},
		{"modulation index", p.ModulationIndex},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", osc.ErrInvalidParameter, f.name, f.v)
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"distortion amount", p.DistortionAmount},
		{"decay", p.Decay},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return fmt.Errorf("%w: %s %v outside [0,1]", osc.ErrInvalidParameter, f.name, f.v)
		}
	}
	if p.Envelope.Enabled {
		if err := p.Envelope.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Store publishes Parameters snapshots. Readers always see a complete
// snapshot; a render started before an update finishes with the old values.
type Store struct {
	cur atomic.Pointer[Parameters]
}

func NewStore(p Parameters) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Store{}
	s.cur.Store(&p)
	return s, nil
}

// Load returns a copy of the current snapshot.
func (s *Store) Load() Parameters {
	return *s.cur.Load()
}

// Set replaces the snapshot after validation.
func (s *Store) Set(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.cur.Store(&p)
	return nil
}

// Update applies fn to a copy of the current snapshot and publishes it.
// Concurrent updates retry so that none is lost.
func (s *Store) Update(fn func(*Parameters)) error {
	for {
		old := s.cur.Load()
		next := *old
		fn(&next)
		if err := next.Validate(); err != nil {
			return err
		}
		if s.cur.CompareAndSwap(old, &next) {
			return nil
		}
	}
}
