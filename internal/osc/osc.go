package osc

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SampleRate is the fixed rate of every buffer produced by the engine.
const SampleRate = 44100

const twoPi = math.Pi * 2

// ErrInvalidParameter reports a precondition violation in a generator call.
// The envelope, effect and parameter packages wrap it too.
var ErrInvalidParameter = errors.New("invalid parameter")

// Waveform selects one of the basic oscillator shapes.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveformNames = [...]string{
	Sine:     "sine",
	Square:   "square",
	Sawtooth: "sawtooth",
	Triangle: "triangle",
}

func (w Waveform) String() string {
	if w.Valid() {
		return waveformNames[w]
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

// Valid reports whether w is one of the four recognized kinds.
func (w Waveform) Valid() bool {
	return w >= Sine && w <= Triangle
}

// ParseWaveform maps a case-insensitive name ("sine", "saw", ...) to a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, nil
	case "square", "sqr":
		return Square, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	case "triangle", "tri":
		return Triangle, nil
	}
	return 0, fmt.Errorf("%w: unknown waveform %q", ErrInvalidParameter, name)
}

func (w Waveform) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: waveform %d", ErrInvalidParameter, int(w))
	}
	return []byte(w.String()), nil
}

func (w *Waveform) UnmarshalText(b []byte) error {
	v, err := ParseWaveform(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Samples returns the buffer length for a duration in seconds.
func Samples(duration float64) int {
	return int(math.Round(SampleRate * duration))
}

// Generate renders a band-unlimited waveform at frequency Hz for duration
// seconds. Values are in [-1, 1].
func Generate(w Waveform, frequency, duration float64) ([]float64, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: waveform %d", ErrInvalidParameter, int(w))
	}
	if err := checkPositive("frequency", frequency); err != nil {
		return nil, err
	}
	if err := checkPositive("duration", duration); err != nil {
		return nil, err
	}
	out := make([]float64, Samples(duration))
	for i := range out {
		out[i] = waveformSample(w, frequency*float64(i)/SampleRate)
	}
	return out, nil
}

// GenerateAM renders a sine carrier whose amplitude follows
// (1 + index*sin(2*pi*mod*t)) / 2. The result is never negative in envelope
// when index <= 1; larger indexes overmodulate.
func GenerateAM(carrier, modulator, index, duration float64) ([]float64, error) {
	if err := checkModulation(carrier, modulator, index, duration); err != nil {
		return nil, err
	}
	out := make([]float64, Samples(duration))
	for i := range out {
		t := float64(i) / SampleRate
		gain := (1 + index*math.Sin(twoPi*modulator*t)) / 2
		out[i] = math.Sin(twoPi*carrier*t) * gain
	}
	return out, nil
}

// GenerateFM renders phase-modulation FM: sin(2*pi*fc*t + index*sin(2*pi*fm*t)).
func GenerateFM(carrier, modulator, index, duration float64) ([]float64, error) {
	if err := checkModulation(carrier, modulator, index, duration); err != nil {
		return nil, err
	}
	out := make([]float64, Samples(duration))
	for i := range out {
		t := float64(i) / SampleRate
		out[i] = math.Sin(twoPi*carrier*t + index*math.Sin(twoPi*modulator*t))
	}
	return out, nil
}

// waveformSample evaluates w at phase measured in cycles.
func waveformSample(w Waveform, cycles float64) float64 {
	frac := cycles - math.Floor(cycles)
	switch w {
	case Square:
		if frac < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return -1 + 2*frac
	case Triangle:
		// sawtooth with the peak moved to the middle of the cycle
		if frac < 0.5 {
			return 4*frac - 1
		}
		return 3 - 4*frac
	default:
		return math.Sin(twoPi * cycles)
	}
}

func checkModulation(carrier, modulator, index, duration float64) error {
	if err := checkPositive("carrier frequency", carrier); err != nil {
		return err
	}
	if err := checkPositive("modulator frequency", modulator); err != nil {
		return err
	}
	if math.IsNaN(index) || math.IsInf(index, 0) || index < 0 {
		return fmt.Errorf("%w: modulation index %v", ErrInvalidParameter, index)
	}
	return checkPositive("duration", duration)
}

func checkPositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParameter, name, v)
	}
	return nil
}
