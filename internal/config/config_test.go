package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cbegin/midisynth-go/internal/audio/backend"
	"github.com/cbegin/midisynth-go/internal/osc"
	"github.com/cbegin/midisynth-go/internal/params"
	"github.com/cbegin/midisynth-go/internal/queue"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NoteDuration() != 500*time.Millisecond || cfg.MaxWait() != 50*time.Millisecond {
		t.Fatalf("durations = %v, %v", cfg.NoteDuration(), cfg.MaxWait())
	}
	if cfg.Parameters != params.Default() {
		t.Fatalf("parameters = %+v", cfg.Parameters)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Ports = []string{"Keystation 49"}
	cfg.Queue = QueueConfig{Capacity: 8, Policy: queue.RejectNewest}
	cfg.Backend = backend.Oto
	cfg.LogLevel = slog.LevelDebug
	cfg.Parameters.Mode = params.Raw
	cfg.Parameters.Waveform = osc.Sawtooth
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Ports) != 1 || got.Ports[0] != "Keystation 49" {
		t.Fatalf("ports = %v", got.Ports)
	}
	if got.Queue != cfg.Queue || got.Backend != cfg.Backend || got.LogLevel != cfg.LogLevel {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
	if got.Parameters != cfg.Parameters {
		t.Fatalf("parameters = %+v, want %+v", got.Parameters, cfg.Parameters)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"noteDurationMs": 250, "parameters": {"mode": "am"}, "logLevel": "WARN"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NoteDurationMs != 250 || cfg.MaxWaitMs != 50 {
		t.Fatalf("durations = %d, %d", cfg.NoteDurationMs, cfg.MaxWaitMs)
	}
	if cfg.Parameters.Mode != params.AM || cfg.Parameters.CarrierFrequency != 500 {
		t.Fatalf("parameters = %+v", cfg.Parameters)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, data := range map[string]string{
		"syntax":   `{`,
		"policy":   `{"queue": {"policy": "block"}}`,
		"backend":  `{"backend": "alsa"}`,
		"duration": `{"noteDurationMs": 0}`,
		"decay":    `{"parameters": {"decay": 4}}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("load should fail")
			}
		})
	}
}
