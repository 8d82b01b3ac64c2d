package audio

import (
	"bytes"
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var ebitenContext = deviceContext[*ebitaudio.Context]{name: "ebiten"}

func openEbiten(sampleRate int) (*ebitaudio.Context, error) {
	return ebitaudio.NewContext(sampleRate), nil
}

// EbitenSink plays each buffer on its own ebiten player so notes overlap.
// Finished players are released on the next Play.
type EbitenSink struct {
	ctx        *ebitaudio.Context
	sampleRate int

	mu     sync.Mutex
	voices []*ebitaudio.Player
}

func NewEbitenSink(sampleRate int) (*EbitenSink, error) {
	// ebiten permits one context per process, so every sink shares it.
	ctx, err := ebitenContext.get(sampleRate, openEbiten)
	if err != nil {
		return nil, err
	}
	return &EbitenSink{ctx: ctx, sampleRate: sampleRate}, nil
}

func (s *EbitenSink) Play(samples []float64, sampleRate int) error {
	if err := checkRate(s.sampleRate, sampleRate); err != nil {
		return err
	}
	// ebiten streams are always stereo float32.
	pl, err := s.ctx.NewPlayerF32(bytes.NewReader(EncodeFloat32LE(samples, 2)))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	pl.Play()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = pruneFinished(s.voices, func(p *ebitaudio.Player) bool { return p.IsPlaying() },
		func(p *ebitaudio.Player) { _ = p.Close() })
	s.voices = append(s.voices, pl)
	return nil
}

// Active reports how many buffers may still be sounding.
func (s *EbitenSink) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// Close stops every voice.
func (s *EbitenSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.voices {
		p.Pause()
		_ = p.Close()
	}
	s.voices = nil
	return nil
}

// pruneFinished keeps the voices for which playing reports true and
// releases the rest.
func pruneFinished[P any](voices []P, playing func(P) bool, release func(P)) []P {
	kept := voices[:0]
	for _, v := range voices {
		if playing(v) {
			kept = append(kept, v)
			continue
		}
		release(v)
	}
	clear(voices[len(kept):])
	return kept
}
