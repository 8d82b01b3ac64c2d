package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/midisynth-go"
	intaudio "github.com/cbegin/midisynth-go/internal/audio"
	intbackend "github.com/cbegin/midisynth-go/internal/audio/backend"
	intconfig "github.com/cbegin/midisynth-go/internal/config"
	intosc "github.com/cbegin/midisynth-go/internal/osc"
	intparams "github.com/cbegin/midisynth-go/internal/params"
)

func main() {
	defaultPath, _ := intconfig.DefaultPath()
	var (
		configPath = flag.String("config", defaultPath, "path to the JSON config file")
		saveConfig = flag.Bool("save-config", false, "write the effective settings back to -config and exit")
		list       = flag.Bool("list", false, "list MIDI input ports and exit")
		ports      = flag.String("port", "", "comma-separated MIDI input port names (substring match)")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto|null")
		logLevel   = flag.String("log-level", "", "debug|info|warn|error")
		mode       = flag.String("mode", "", "synthesis mode: fm|am|raw")
		waveform   = flag.String("waveform", "", "raw waveform: sine|square|sawtooth|triangle")
		carrier    = flag.Float64("carrier", 0, "carrier frequency in Hz for -audition")
		modulator  = flag.Float64("modulator", 0, "modulator frequency in Hz")
		index      = flag.Float64("index", 0, "modulation index")
		distortion = flag.Float64("distortion", -1, "post-effect mix amount 0..1")
		decay      = flag.Float64("decay", -1, "post-effect tap decay 0..1")
		noEffect   = flag.Bool("no-effect", false, "bypass the post-effect")
		envelope   = flag.Bool("envelope", false, "shape notes with the ADSR envelope")
		durationMs = flag.Int("duration", 0, "note length in milliseconds")
		audition   = flag.Bool("audition", false, "play one note at the carrier frequency on start")
	)
	flag.Parse()

	if *list {
		for _, name := range midisynth.ListPorts() {
			fmt.Println(name)
		}
		gomidi.CloseDriver()
		return
	}

	cfg, err := intconfig.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if err := applyFlags(cfg, flagOverrides{
		ports: *ports, backend: *backend, logLevel: *logLevel,
		mode: *mode, waveform: *waveform,
		carrier: *carrier, modulator: *modulator, index: *index,
		distortion: *distortion, decay: *decay,
		noEffect: *noEffect, envelope: *envelope, durationMs: *durationMs,
	}); err != nil {
		fatal(err)
	}
	if *saveConfig {
		if err := cfg.Save(*configPath); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *configPath)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger, *audition); err != nil {
		logger.Error("midisynth stopped", "err", err)
		gomidi.CloseDriver()
		os.Exit(1)
	}
	gomidi.CloseDriver()
}

func run(cfg *intconfig.Config, logger *slog.Logger, audition bool) error {
	sink, err := intaudio.Open(cfg.Backend, midisynth.SampleRate)
	if err != nil {
		return err
	}
	engine, err := midisynth.New(
		midisynth.WithSink(sink),
		midisynth.WithLogger(logger),
		midisynth.WithQueue(cfg.Queue.Capacity, cfg.Queue.Policy),
		midisynth.WithNoteDuration(cfg.NoteDuration()),
		midisynth.WithMaxWait(cfg.MaxWait()),
		midisynth.WithParameters(cfg.Parameters),
		midisynth.WithAMIndexClamp(cfg.ClampAMIndex),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	opened := 0
	for _, port := range cfg.Ports {
		if err := engine.StartSource(port); err != nil {
			logger.Error("midi input unavailable", "port", port, "err", err)
			continue
		}
		opened++
	}
	if opened == 0 && !audition {
		return fmt.Errorf("no MIDI input open (try -list and -port)")
	}
	p := engine.Parameters()
	logger.Info("synth ready", "mode", p.Mode, "waveform", p.Waveform, "backend", cfg.Backend,
		"inputs", opened, "effect", p.EffectEnabled, "envelope", p.Envelope.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(ctx)
	})
	if audition {
		if err := engine.Audition(1); err != nil {
			logger.Warn("audition failed", "err", err)
		}
	}
	g.Go(func() error {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				s := engine.Stats()
				logger.Debug("stats", "rendered", s.Rendered, "failed", s.Failed,
					"playbackErrors", s.PlaybackErrors, "dropped", s.Dropped, "pending", s.Pending)
			}
		}
	})
	err = g.Wait()
	s := engine.Stats()
	logger.Info("shutting down", "rendered", s.Rendered, "failed", s.Failed, "dropped", s.Dropped)
	return err
}

type flagOverrides struct {
	ports, backend, logLevel, mode, waveform string
	carrier, modulator, index                float64
	distortion, decay                        float64
	noEffect, envelope                       bool
	durationMs                               int
}

// applyFlags overlays flags that were given on the command line onto cfg.
func applyFlags(cfg *intconfig.Config, f flagOverrides) error {
	if f.ports != "" {
		cfg.Ports = nil
		for _, name := range strings.Split(f.ports, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Ports = append(cfg.Ports, name)
			}
		}
	}
	if f.backend != "" {
		b, err := intbackend.Parse(f.backend)
		if err != nil {
			return err
		}
		cfg.Backend = b
	}
	if f.logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(f.logLevel)); err != nil {
			return fmt.Errorf("invalid -log-level %q: %w", f.logLevel, err)
		}
	}
	if f.durationMs > 0 {
		cfg.NoteDurationMs = f.durationMs
	}
	p := &cfg.Parameters
	if f.mode != "" {
		m, err := intparams.ParseMode(f.mode)
		if err != nil {
			return err
		}
		p.Mode = m
	}
	if f.waveform != "" {
		w, err := intosc.ParseWaveform(f.waveform)
		if err != nil {
			return err
		}
		p.Waveform = w
	}
	if f.carrier > 0 {
		p.CarrierFrequency = f.carrier
	}
	if f.modulator > 0 {
		p.ModulatorFrequency = f.modulator
	}
	if f.index > 0 {
		p.ModulationIndex = f.index
	}
	if f.distortion >= 0 {
		p.DistortionAmount = f.distortion
	}
	if f.decay >= 0 {
		p.Decay = f.decay
	}
	if f.noEffect {
		p.EffectEnabled = false
	}
	if f.envelope {
		p.Envelope.Enabled = true
	}
	return cfg.Validate()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
