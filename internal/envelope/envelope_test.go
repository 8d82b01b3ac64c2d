package envelope

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/midisynth-go/internal/osc"
)

func TestCurveLengthAndSegments(t *testing.T) {
	const length = 44100
	env, err := Build(length, 0.1, 0.2, 0.6, 0.3)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(env) != length {
		t.Fatalf("len = %d, want %d", len(env), length)
	}
	attack, decay, release := 4410, 8820, 13230

	if env[0] != 0 {
		t.Errorf("attack start = %f, want 0", env[0])
	}
	if env[attack-1] != 1 {
		t.Errorf("attack end = %f, want 1", env[attack-1])
	}
	for i := 1; i < attack; i++ {
		if env[i] < env[i-1] {
			t.Fatalf("attack not monotone at %d", i)
		}
	}
	for i := attack + 1; i < attack+decay; i++ {
		if env[i] > env[i-1] {
			t.Fatalf("decay not monotone at %d", i)
		}
	}
	if got := env[attack+decay-1]; math.Abs(got-0.6) > 1e-12 {
		t.Errorf("decay end = %f, want 0.6", got)
	}
	for i := attack + decay; i < length-release; i++ {
		if env[i] != 0.6 {
			t.Fatalf("sustain[%d] = %f, want 0.6", i, env[i])
		}
	}
	for i := length - release + 1; i < length; i++ {
		if env[i] > env[i-1] {
			t.Fatalf("release not monotone at %d", i)
		}
	}
	if env[length-1] != 0 {
		t.Errorf("release end = %f, want 0", env[length-1])
	}
}

func TestCurveValuesInRange(t *testing.T) {
	for _, a := range []ADSR{
		{Attack: 0.01, Decay: 0.05, Sustain: 0.7, Release: 0.1},
		{Attack: 0, Decay: 0, Sustain: 1, Release: 0},
		{Attack: 0.3, Decay: 0.3, Sustain: 0, Release: 0.3},
	} {
		env, err := a.Curve(22050)
		if err != nil {
			t.Fatalf("%+v: %v", a, err)
		}
		for i, v := range env {
			if v < 0 || v > 1 {
				t.Fatalf("%+v: env[%d] = %f out of [0,1]", a, i, v)
			}
		}
	}
}

func TestCurveOverrunTrimsReleaseFirst(t *testing.T) {
	// attack 100 + decay 100 + release 300 samples into a 400-sample buffer.
	a := ADSR{
		Attack:  100.5 / osc.SampleRate,
		Decay:   100.5 / osc.SampleRate,
		Sustain: 0.5,
		Release: 300.5 / osc.SampleRate,
	}
	env, err := a.Curve(400)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	if len(env) != 400 {
		t.Fatalf("len = %d, want 400", len(env))
	}
	if env[99] != 1 {
		t.Errorf("attack kept its full ramp, env[99] = %f", env[99])
	}
	if math.Abs(env[199]-0.5) > 1e-12 {
		t.Errorf("decay kept its full ramp, env[199] = %f", env[199])
	}
	if env[200] != 0.5 {
		t.Errorf("release starts at sustain, env[200] = %f", env[200])
	}
	if env[399] != 0 {
		t.Errorf("release ends at zero, env[399] = %f", env[399])
	}
}

func TestCurveOverrunIntoDecayAndAttack(t *testing.T) {
	a := ADSR{Attack: 0.5, Decay: 0.5, Sustain: 0.5, Release: 0.5}
	for _, length := range []int{0, 1, 100, 22050, 30000, 44100} {
		env, err := a.Curve(length)
		if err != nil {
			t.Fatalf("length %d: %v", length, err)
		}
		if len(env) != length {
			t.Fatalf("len = %d, want %d", len(env), length)
		}
		for i := 1; i < len(env) && i < 22050; i++ {
			if env[i] < env[i-1] {
				t.Fatalf("length %d: truncated attack not monotone at %d", length, i)
			}
		}
	}
}

func TestEmphasisRequiresOptIn(t *testing.T) {
	if _, err := Build(100, 0, 0, 1.5, 0); !errors.Is(err, osc.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
	a := ADSR{Attack: 0.001, Decay: 0.001, Sustain: 1.5, Release: 0.001, AllowEmphasis: true}
	env, err := a.Curve(1000)
	if err != nil {
		t.Fatalf("emphasis curve: %v", err)
	}
	var peak float64
	for _, v := range env {
		peak = max(peak, v)
	}
	if peak != 1.5 {
		t.Errorf("peak = %f, want 1.5", peak)
	}
}

func TestCurveRejectsInvalidInput(t *testing.T) {
	for _, tc := range []struct {
		name   string
		a      ADSR
		length int
	}{
		{"negative attack", ADSR{Attack: -0.1, Sustain: 0.5}, 10},
		{"negative release", ADSR{Release: -1, Sustain: 0.5}, 10},
		{"nan decay", ADSR{Decay: math.NaN(), Sustain: 0.5}, 10},
		{"negative sustain", ADSR{Sustain: -0.1}, 10},
		{"negative length", ADSR{Sustain: 0.5}, -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.a.Curve(tc.length); !errors.Is(err, osc.ErrInvalidParameter) {
				t.Fatalf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	sig := []float64{1, -1, 0.5, 2}
	if err := Apply(sig, []float64{0, 0.5, 1, 0.25}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []float64{0, -0.5, 0.5, 0.5}
	for i := range want {
		if sig[i] != want[i] {
			t.Errorf("sig[%d] = %f, want %f", i, sig[i], want[i])
		}
	}
	if err := Apply(sig, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestCurveHugeDurationsStayInBounds(t *testing.T) {
	cases := []struct {
		name   string
		adsr   ADSR
		length int
	}{
		{"all segments 1e14 s", ADSR{Attack: 1e14, Decay: 1e14, Sustain: 0.5, Release: 1e14}, 100},
		{"all segments 1e15 s", ADSR{Attack: 1e15, Decay: 1e15, Sustain: 0.5, Release: 1e15}, 441},
		{"release 1e300 s", ADSR{Attack: 0.001, Decay: 0.001, Sustain: 0.5, Release: 1e300}, 441},
		{"empty", ADSR{Attack: 1e15, Sustain: 0.5}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := tc.adsr.Curve(tc.length)
			if err != nil {
				t.Fatalf("curve: %v", err)
			}
			if len(env) != tc.length {
				t.Fatalf("len = %d, want %d", len(env), tc.length)
			}
			for i, v := range env {
				if math.IsNaN(v) || v < 0 || v > 1 {
					t.Fatalf("env[%d] = %v outside [0,1]", i, v)
				}
			}
		})
	}
}

func TestCurveHugeAttackKeepsRamp(t *testing.T) {
	env, err := ADSR{Attack: 1e15, Sustain: 0.5}.Curve(10)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	// The whole buffer is the very start of a slow attack, not sustain.
	if env[0] != 0 {
		t.Fatalf("env[0] = %v, want 0", env[0])
	}
	for i := 1; i < len(env); i++ {
		if env[i] < env[i-1] || env[i] > 1e-9 {
			t.Fatalf("env[%d] = %v after %v, want a slow rising ramp", i, env[i], env[i-1])
		}
	}
}
