package midi

import (
	"fmt"
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/midisynth-go/internal/osc"
)

// NoteEvent is one unit of render work produced by a note-on message.
type NoteEvent struct {
	Frequency float64 // Hz, > 0
	Velocity  float64 // 0..1
	Duration  float64 // seconds, > 0
}

// NewNoteEvent validates and builds a NoteEvent.
func NewNoteEvent(frequency, velocity, duration float64) (NoteEvent, error) {
	ev := NoteEvent{Frequency: frequency, Velocity: velocity, Duration: duration}
	return ev, ev.Validate()
}

func (ev NoteEvent) Validate() error {
	if math.IsNaN(ev.Frequency) || math.IsInf(ev.Frequency, 0) || ev.Frequency <= 0 {
		return fmt.Errorf("%w: note frequency %v", osc.ErrInvalidParameter, ev.Frequency)
	}
	if math.IsNaN(ev.Velocity) || ev.Velocity < 0 || ev.Velocity > 1 {
		return fmt.Errorf("%w: note velocity %v", osc.ErrInvalidParameter, ev.Velocity)
	}
	if math.IsNaN(ev.Duration) || math.IsInf(ev.Duration, 0) || ev.Duration <= 0 {
		return fmt.Errorf("%w: note duration %v", osc.ErrInvalidParameter, ev.Duration)
	}
	return nil
}

// NoteToFreq converts a MIDI note number to Hz in 12-tone equal temperament.
func NoteToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// Classify turns a note-on with non-zero velocity into a NoteEvent. Every
// other message, including note-off and zero-velocity note-on, is ignored.
func Classify(msg gomidi.Message, duration float64) (NoteEvent, bool) {
	var channel, key, velocity uint8
	if !msg.GetNoteOn(&channel, &key, &velocity) || velocity == 0 {
		return NoteEvent{}, false
	}
	return NoteEvent{
		Frequency: NoteToFreq(int(key)),
		Velocity:  float64(velocity) / 127,
		Duration:  duration,
	}, true
}
