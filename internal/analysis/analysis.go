// Package analysis measures rendered buffers.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/ktye/fft"
)

// ErrTooShort is returned when a buffer has fewer than MinSamples samples.
var ErrTooShort = errors.New("buffer too short to analyse")

const MinSamples = 64

// Spectrum returns the magnitudes of bins 0..n/2 of a Hann-windowed FFT over
// the first n samples, n being the largest power of two that fits.
func Spectrum(samples []float64) ([]float64, error) {
	if len(samples) < MinSamples {
		return nil, fmt.Errorf("%w: %d samples", ErrTooShort, len(samples))
	}
	n := 1
	for n*2 <= len(samples) {
		n *= 2
	}
	f, err := fft.New(n)
	if err != nil {
		return nil, err
	}
	buf := make([]complex128, n)
	for i := range buf {
		w := (1 - math.Cos(2*math.Pi*float64(i)/float64(n))) / 2
		buf[i] = complex(samples[i]*w, 0)
	}
	buf = f.Transform(buf)
	mags := make([]float64, n/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(buf[i])
	}
	return mags, nil
}

// DominantFrequency returns the frequency in Hz of the strongest spectral
// peak, refined by parabolic interpolation between neighbouring bins.
func DominantFrequency(samples []float64, sampleRate int) (float64, error) {
	mags, err := Spectrum(samples)
	if err != nil {
		return 0, err
	}
	peak := 1
	for i := 2; i < len(mags); i++ {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	bin := float64(peak)
	if peak < len(mags)-1 {
		a, b, c := mags[peak-1], mags[peak], mags[peak+1]
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	n := 2 * (len(mags) - 1)
	return bin * float64(sampleRate) / float64(n), nil
}

// Peak is the largest absolute sample value.
func Peak(samples []float64) float64 {
	p := 0.0
	for _, s := range samples {
		p = max(p, math.Abs(s))
	}
	return p
}

func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
