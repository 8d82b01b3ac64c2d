// Package envelope builds attack-decay-sustain-release gain curves.
package envelope

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/midisynth-go/internal/osc"
)

// ErrLengthMismatch is returned by Apply when curve and signal differ in length.
var ErrLengthMismatch = errors.New("envelope length mismatch")

// ADSR describes an envelope in seconds. Sustain is a level in [0, 1], or any
// non-negative level when AllowEmphasis is set.
type ADSR struct {
	Attack        float64 `json:"attack"`
	Decay         float64 `json:"decay"`
	Sustain       float64 `json:"sustain"`
	Release       float64 `json:"release"`
	AllowEmphasis bool    `json:"allowEmphasis,omitempty"`
}

// Validate checks durations and the sustain level.
func (a ADSR) Validate() error {
	for _, d := range []struct {
		name string
		v    float64
	}{
		{"attack", a.Attack},
		{"decay", a.Decay},
		{"release", a.Release},
	} {
		if math.IsNaN(d.v) || math.IsInf(d.v, 0) || d.v < 0 {
			return fmt.Errorf("%w: %s %v", osc.ErrInvalidParameter, d.name, d.v)
		}
	}
	if math.IsNaN(a.Sustain) || math.IsInf(a.Sustain, 0) || a.Sustain < 0 {
		return fmt.Errorf("%w: sustain level %v", osc.ErrInvalidParameter, a.Sustain)
	}
	if a.Sustain > 1 && !a.AllowEmphasis {
		return fmt.Errorf("%w: sustain level %v above 1 without emphasis", osc.ErrInvalidParameter, a.Sustain)
	}
	return nil
}

// Curve returns exactly length gain values at the engine sample rate.
//
// When attack+decay+release do not fit, the sustain segment collapses to
// zero and the excess is taken from release first, then decay, then attack.
// A shortened release still ends at zero; shortened attack and decay segments
// keep their slope and are cut off.
func (a ADSR) Curve(length int) ([]float64, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: length %d", osc.ErrInvalidParameter, length)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	// Segment lengths are clamped to length before leaving float64 so that
	// huge durations cannot overflow the trimming arithmetic. The unclamped
	// sample counts still set the slopes.
	fullAttack := samples(a.Attack)
	fullDecay := samples(a.Decay)
	attack := clampCount(fullAttack, length)
	decay := clampCount(fullDecay, length)
	release := clampCount(samples(a.Release), length)

	excess := attack + decay + release - length
	release, excess = shrink(release, excess)
	decay, excess = shrink(decay, excess)
	attack, _ = shrink(attack, excess)
	sustain := length - attack - decay - release

	env := make([]float64, length)
	pos := 0
	for i := 0; i < attack; i++ {
		env[pos] = ramp(0, 1, i, fullAttack)
		pos++
	}
	for i := 0; i < decay; i++ {
		env[pos] = ramp(1, a.Sustain, i, fullDecay)
		pos++
	}
	for i := 0; i < sustain; i++ {
		env[pos] = a.Sustain
		pos++
	}
	for i := 0; i < release; i++ {
		env[pos] = ramp(a.Sustain, 0, i, float64(release))
		pos++
	}
	return env, nil
}

// Build is shorthand for ADSR{...}.Curve(length).
func Build(length int, attack, decay, sustain, release float64) ([]float64, error) {
	return ADSR{Attack: attack, Decay: decay, Sustain: sustain, Release: release}.Curve(length)
}

// Apply multiplies signal by curve in place.
func Apply(signal, curve []float64) error {
	if len(signal) != len(curve) {
		return fmt.Errorf("%w: signal %d samples, curve %d", ErrLengthMismatch, len(signal), len(curve))
	}
	for i, g := range curve {
		signal[i] *= g
	}
	return nil
}

// ramp is the i-th of n evenly spaced points from..to, both ends included.
func ramp(from, to float64, i int, n float64) float64 {
	if n <= 1 {
		return to
	}
	return from + (to-from)*float64(i)/(n-1)
}

// samples converts seconds to a whole number of samples without leaving float64.
func samples(seconds float64) float64 {
	return math.Floor(seconds * osc.SampleRate)
}

func clampCount(n float64, length int) int {
	return int(min(n, float64(length)))
}

func shrink(n, excess int) (int, int) {
	if excess <= 0 {
		return n, excess
	}
	cut := min(n, excess)
	return n - cut, excess - cut
}
