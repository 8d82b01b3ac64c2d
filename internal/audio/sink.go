// Package audio delivers rendered buffers to an output device.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/midisynth-go/internal/audio/backend"
)

// ErrPlayback wraps every failure to hand a buffer to a device.
var ErrPlayback = errors.New("playback error")

// Sink plays mono float64 buffers. Play starts playback and returns without
// waiting for it to finish; overlapping calls may sound at the same time.
type Sink interface {
	Play(samples []float64, sampleRate int) error
}

// Open builds the sink for backend at sampleRate.
func Open(name backend.Name, sampleRate int) (Sink, error) {
	switch name {
	case backend.Ebiten, "":
		s, err := NewEbitenSink(sampleRate)
		if err != nil {
			return nil, err
		}
		return s, nil
	case backend.Oto:
		s, err := NewOtoSink(sampleRate)
		if err != nil {
			return nil, err
		}
		return s, nil
	case backend.Null:
		return NewRecorder(sampleRate, 0), nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", ErrPlayback, name)
}

// EncodeFloat32LE converts mono samples to little-endian float32 frames with
// the sample copied into every channel. Values are clipped to [-1, 1].
func EncodeFloat32LE(samples []float64, channels int) []byte {
	if channels < 1 {
		channels = 1
	}
	out := make([]byte, len(samples)*channels*4)
	off := 0
	for _, s := range samples {
		bits := math.Float32bits(float32(min(max(s, -1), 1)))
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint32(out[off:], bits)
			off += 4
		}
	}
	return out
}

func checkRate(want, got int) error {
	if want != got {
		return fmt.Errorf("%w: device runs at %d Hz, buffer is %d Hz", ErrPlayback, want, got)
	}
	return nil
}
