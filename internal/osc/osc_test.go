package osc

import (
	"errors"
	"math"
	"testing"
)

func TestGenerateLength(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Sawtooth, Triangle} {
		for _, tc := range []struct {
			freq, dur float64
		}{
			{440, 0.5},
			{27.5, 1},
			{1000, 0.0123},
			{3.3, 0.25},
		} {
			buf, err := Generate(w, tc.freq, tc.dur)
			if err != nil {
				t.Fatalf("%v generate: %v", w, err)
			}
			want := int(math.Round(SampleRate * tc.dur))
			if len(buf) != want {
				t.Errorf("%v f=%v d=%v: len=%d want %d", w, tc.freq, tc.dur, len(buf), want)
			}
		}
	}
}

func TestGenerateBounded(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Sawtooth, Triangle} {
		buf, err := Generate(w, 1234.5, 0.3)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		for i, v := range buf {
			if math.Abs(v) > 1 {
				t.Fatalf("%v sample %d = %f exceeds unit range", w, i, v)
			}
		}
	}
}

func TestSineMatchesFormula(t *testing.T) {
	buf, err := Generate(Sine, 440, 0.01)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i := 0; i < 32; i++ {
		want := math.Sin(2 * math.Pi * 440 * float64(i) / SampleRate)
		if math.Abs(buf[i]-want) > 1e-9 {
			t.Fatalf("sample %d = %f, want %f", i, buf[i], want)
		}
	}
}

func TestWaveformShapes(t *testing.T) {
	// 441 Hz gives exactly 100 samples per cycle.
	const f = 441
	cases := []struct {
		w     Waveform
		index int
		want  float64
	}{
		{Square, 0, 1},
		{Square, 49, 1},
		{Square, 50, -1},
		{Square, 99, -1},
		{Sawtooth, 0, -1},
		{Sawtooth, 50, 0},
		{Triangle, 0, -1},
		{Triangle, 25, 0},
		{Triangle, 50, 1},
		{Triangle, 75, 0},
	}
	for _, tc := range cases {
		buf, err := Generate(tc.w, f, 0.01)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if got := buf[tc.index]; math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%v[%d] = %f, want %f", tc.w, tc.index, got, tc.want)
		}
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		w    Waveform
		f, d float64
	}{
		{"unknown waveform", Waveform(9), 440, 1},
		{"negative waveform", Waveform(-1), 440, 1},
		{"zero frequency", Sine, 0, 1},
		{"negative frequency", Sine, -10, 1},
		{"zero duration", Sine, 440, 0},
		{"nan duration", Sine, 440, math.NaN()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Generate(tc.w, tc.f, tc.d); !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestAMWithZeroIndexIsHalfCarrier(t *testing.T) {
	buf, err := GenerateAM(440, 50, 0, 0.05)
	if err != nil {
		t.Fatalf("am: %v", err)
	}
	for i, v := range buf {
		want := math.Sin(2*math.Pi*440*float64(i)/SampleRate) * 0.5
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("sample %d = %f, want %f", i, v, want)
		}
	}
}

func TestAMEnvelopeNeverExceedsCarrierWithUnitIndex(t *testing.T) {
	buf, err := GenerateAM(500, 30, 1, 0.2)
	if err != nil {
		t.Fatalf("am: %v", err)
	}
	for i, v := range buf {
		if math.Abs(v) > 1+1e-12 {
			t.Fatalf("sample %d = %f exceeds unit gain", i, v)
		}
	}
}

func TestFMWithZeroIndexIsPureCarrier(t *testing.T) {
	buf, err := GenerateFM(440, 50, 0, 0.05)
	if err != nil {
		t.Fatalf("fm: %v", err)
	}
	for i, v := range buf {
		want := math.Sin(2 * math.Pi * 440 * float64(i) / SampleRate)
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("sample %d = %f, want %f", i, v, want)
		}
	}
}

func TestFMMatchesPhaseModulationFormula(t *testing.T) {
	buf, err := GenerateFM(440, 50, 2, 0.5)
	if err != nil {
		t.Fatalf("fm: %v", err)
	}
	if len(buf) != 22050 {
		t.Fatalf("len = %d, want 22050", len(buf))
	}
	for i := 0; i < 16; i++ {
		tt := float64(i) / SampleRate
		want := math.Sin(2*math.Pi*440*tt + 2*math.Sin(2*math.Pi*50*tt))
		if math.Abs(buf[i]-want) > 1e-9 {
			t.Fatalf("sample %d = %f, want %f", i, buf[i], want)
		}
	}
}

func TestModulationRejectsBadInput(t *testing.T) {
	gens := map[string]func(c, m, i, d float64) ([]float64, error){
		"am": GenerateAM,
		"fm": GenerateFM,
	}
	for name, gen := range gens {
		for _, args := range [][4]float64{
			{0, 50, 1, 1},
			{440, 0, 1, 1},
			{440, 50, -1, 1},
			{440, 50, 1, 0},
			{440, 50, math.Inf(1), 1},
		} {
			if _, err := gen(args[0], args[1], args[2], args[3]); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("%s%v: err = %v, want ErrInvalidParameter", name, args, err)
			}
		}
	}
}

func TestParseWaveform(t *testing.T) {
	for name, want := range map[string]Waveform{
		"sine":     Sine,
		"Square":   Square,
		" saw ":    Sawtooth,
		"sawtooth": Sawtooth,
		"TRIANGLE": Triangle,
	} {
		got, err := ParseWaveform(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if got != want {
			t.Errorf("parse %q = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseWaveform("noise"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("noise: err = %v, want ErrInvalidParameter", err)
	}
}
