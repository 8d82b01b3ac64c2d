// Package effects implements the post-render distortion/reverb stage.
package effects

import (
	"fmt"
	"math"

	"github.com/cbegin/midisynth-go/internal/osc"
)

// TapDelaysMs are the fixed delay taps in milliseconds.
var TapDelaysMs = [4]float64{29, 37, 41, 53}

// tapFalloff is the per-tap gain ratio; tap i is scaled by decay * tapFalloff^i.
const tapFalloff = 0.7

var (
	tapDelays  [len(TapDelaysMs)]int
	tapWeights [len(TapDelaysMs)]float64
	// tapNorm keeps the summed wet gain at or below decay.
	tapNorm float64
)

func init() {
	w := 1.0
	for i, ms := range TapDelaysMs {
		tapDelays[i] = int(ms * osc.SampleRate / 1000)
		tapWeights[i] = w
		tapNorm += w
		w *= tapFalloff
	}
}

// TapDelay returns the delay of tap i in samples.
func TapDelay(i int) int { return tapDelays[i] }

// TapGain returns the gain of tap i for a given decay.
func TapGain(i int, decay float64) float64 { return decay * tapWeights[i] }

// Apply mixes signal with four saturated delay taps:
//
//	out = signal*(1-amount) + wet*amount
//	wet[t] = sum_i tanh(signal[t-d_i] * decay * 0.7^i) / sum_i 0.7^i
//
// Taps contribute nothing before their delay. The input is left untouched and
// amount 0 returns an exact copy.
//
// Unlike a plain tap sum, wet is divided by sum_i 0.7^i so the summed tap
// gain never exceeds decay.
func Apply(signal []float64, amount, decay float64) ([]float64, error) {
	if err := checkUnit("amount", amount); err != nil {
		return nil, err
	}
	if err := checkUnit("decay", decay); err != nil {
		return nil, err
	}
	wet := make([]float64, len(signal))
	for i, d := range tapDelays {
		g := TapGain(i, decay)
		for t := d; t < len(signal); t++ {
			wet[t] += math.Tanh(signal[t-d]*g) / tapNorm
		}
	}
	out := wet
	for t, x := range signal {
		out[t] = x*(1-amount) + wet[t]*amount
	}
	return out, nil
}

func checkUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s %v outside [0,1]", osc.ErrInvalidParameter, name, v)
	}
	return nil
}
