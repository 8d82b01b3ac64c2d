package audio

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

var otoContext = deviceContext[*oto.Context]{name: "oto"}

func openOto(sampleRate int) (*oto.Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	return ctx, nil
}

// OtoSink writes mono float32 straight to oto without ebiten's mixer. It
// cannot share a process with EbitenSink, which owns its own oto context.
type OtoSink struct {
	ctx        *oto.Context
	sampleRate int

	mu     sync.Mutex
	voices []*oto.Player
}

func NewOtoSink(sampleRate int) (*OtoSink, error) {
	ctx, err := otoContext.get(sampleRate, openOto)
	if err != nil {
		return nil, err
	}
	return &OtoSink{ctx: ctx, sampleRate: sampleRate}, nil
}

func (s *OtoSink) Play(samples []float64, sampleRate int) error {
	if err := checkRate(s.sampleRate, sampleRate); err != nil {
		return err
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	pl := s.ctx.NewPlayer(bytes.NewReader(EncodeFloat32LE(samples, 1)))
	pl.Play()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = pruneFinished(s.voices, func(p *oto.Player) bool { return p.IsPlaying() },
		func(p *oto.Player) { _ = p.Close() })
	s.voices = append(s.voices, pl)
	return nil
}

func (s *OtoSink) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.voices {
		p.Pause()
		_ = p.Close()
	}
	s.voices = nil
	return nil
}
