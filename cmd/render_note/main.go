package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cbegin/midisynth-go"
	intanalysis "github.com/cbegin/midisynth-go/internal/analysis"
	intosc "github.com/cbegin/midisynth-go/internal/osc"
	intparams "github.com/cbegin/midisynth-go/internal/params"
)

func main() {
	var (
		note       = flag.Int("note", 69, "MIDI note number")
		velocity   = flag.Int("velocity", 100, "MIDI velocity 1..127")
		duration   = flag.Float64("duration", 0.5, "note length in seconds")
		mode       = flag.String("mode", "fm", "synthesis mode: fm|am|raw")
		waveform   = flag.String("waveform", "sine", "raw waveform: sine|square|sawtooth|triangle")
		modulator  = flag.Float64("modulator", 50, "modulator frequency in Hz")
		index      = flag.Float64("index", 2, "modulation index")
		distortion = flag.Float64("distortion", 0.3, "post-effect mix amount 0..1")
		decay      = flag.Float64("decay", 0.6, "post-effect tap decay 0..1")
		noEffect   = flag.Bool("no-effect", false, "bypass the post-effect")
		envelope   = flag.Bool("envelope", false, "shape the note with the default ADSR envelope")
		out        = flag.String("out", "", "output WAV path (default note-<n>-<mode>.wav)")
	)
	flag.Parse()

	p := midisynth.DefaultParameters()
	m, err := intparams.ParseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}
	w, err := intosc.ParseWaveform(*waveform)
	if err != nil {
		log.Fatal(err)
	}
	p.Mode = m
	p.Waveform = w
	p.ModulatorFrequency = *modulator
	p.ModulationIndex = *index
	p.DistortionAmount = *distortion
	p.Decay = *decay
	p.EffectEnabled = !*noEffect
	p.Envelope.Enabled = *envelope

	ev, err := midisynth.NewNoteEvent(midisynth.NoteToFreq(*note), float64(*velocity)/127, *duration)
	if err != nil {
		log.Fatal(err)
	}
	samples, err := midisynth.RenderNote(ev, p)
	if err != nil {
		log.Fatal(err)
	}

	path := *out
	if strings.TrimSpace(path) == "" {
		path = fmt.Sprintf("note-%d-%s.wav", *note, m)
	}
	wav := midisynth.EncodeWAVFloat32LE(samples, midisynth.SampleRate, 1)
	if err := os.WriteFile(path, wav, 0644); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("wrote %s (%d samples, %.3f s)\n", path, len(samples), float64(len(samples))/midisynth.SampleRate)
	fmt.Printf("note %d -> %.2f Hz, peak %.3f, rms %.3f\n", *note, ev.Frequency,
		intanalysis.Peak(samples), intanalysis.RMS(samples))
	if f, err := intanalysis.DominantFrequency(samples, midisynth.SampleRate); err == nil {
		fmt.Printf("dominant frequency %.2f Hz\n", f)
	}
}
