package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	facedetection "github.com/prashanthag/deepstream-face-detection"
	"github.com/prashanthag/deepstream-face-detection/internal/config"
	"github.com/prashanthag/deepstream-face-detection/internal/emitter"
	"github.com/prashanthag/deepstream-face-detection/internal/health"
)

type runOptions struct {
	configPath string
	profile    string
	device     string
	sink       string
	source     string
	probeMode  string
	dryRun     bool
	debug      bool
	json       bool
}

func parseRunFlags(args []string, stderr io.Writer) (*runOptions, error) {
	o := &runOptions{}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&o.profile, "profile", "console", "Preset: "+strings.Join(config.ProfileNames(), ", "))
	fs.StringVar(&o.device, "device", "", "V4L2 device node (overrides config)")
	fs.StringVar(&o.sink, "sink", "", "Sink: fake, display, udp (overrides config)")
	fs.StringVar(&o.source, "source", "", "Source: camera, test (overrides config)")
	fs.StringVar(&o.probeMode, "probe-mode", "", "Probe mode: count, metadata, auto (overrides config)")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Print the gst-launch pipeline and exit")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&o.json, "json", false, "Log as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}
		return nil, usageErr("%v", err)
	}
	if fs.NArg() > 0 {
		return nil, usageErr("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// resolveConfig loads the file or profile and applies flag overrides.
// base is the file config before overrides (nil for profiles); it is the
// baseline for hot reload, since reloading the file never sees the flags.
func resolveConfig(o *runOptions) (cfg, base *config.Config, err error) {
	if o.configPath != "" {
		base, err = config.Load(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		c := *base
		cfg = &c
	} else {
		cfg, err = config.Profile(o.profile)
		if err != nil {
			return nil, nil, usageErr("%v", err)
		}
	}

	if o.device != "" {
		cfg.Source.Device = o.device
	}
	if o.source != "" {
		cfg.Source.Kind = o.source
	}
	if o.sink != "" {
		cfg.Sink.Kind = o.sink
	}
	if o.probeMode != "" {
		cfg.Probe.Mode = o.probeMode
	}

	if err := config.Validate(cfg); err != nil {
		return nil, nil, usageErr("%v", err)
	}
	return cfg, base, nil
}

func runCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseRunFlags(args, stderr)
	if err != nil {
		return err
	}
	setupLogging(stderr, o.debug, o.json)

	cfg, base, err := resolveConfig(o)
	if err != nil {
		return err
	}

	runner, err := facedetection.NewRunner(cfg)
	if err != nil {
		return err
	}

	if o.dryRun {
		fmt.Fprintf(stdout, "gst-launch-1.0 -e %s\n", runner.Graph().LaunchString())
		return nil
	}

	printBanner(stdout, cfg)
	runner.SetOutput(stdout)

	var wg sync.WaitGroup
	defer wg.Wait()

	auxCtx, cancelAux := context.WithCancel(ctx)
	defer cancelAux()

	if o.configPath != "" {
		watcher := config.NewWatcher(o.configPath, base, runner.ApplyConfig)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(auxCtx); err != nil {
				slog.Warn("face-detection: config hot reload disabled", "error", err)
			}
		}()
	}

	var mqttEmitter *emitter.MQTTEmitter
	if cfg.MQTT.Broker != "" {
		mqttEmitter = emitter.NewMQTTEmitter(cfg.MQTT)
		if err := mqttEmitter.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to mqtt: %w", err)
		}
		defer mqttEmitter.Disconnect()

		events := make(chan facedetection.DetectionEvent, 64)
		if err := runner.Subscribe("mqtt", events); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			mqttEmitter.Run(auxCtx, events)
		}()
	}

	if cfg.Health.Addr != "" {
		srv := health.NewServer(cfg.Health.Addr, runner)
		if mqttEmitter != nil {
			srv.MQTTConnected = func() bool { return mqttEmitter.Stats().Connected }
		}
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// Detections is closed by Run, so the drain only starts here
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range runner.Detections() {
		}
	}()

	fmt.Fprintln(stdout, "Pipeline running. Press Ctrl+C to stop.")

	err = runner.Run(ctx)
	cancelAux()
	return err
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║          DeepStream Face Detection - face-detect          ║\n")
	fmt.Fprintf(w, "║                      Version %s                       ║\n", version)
	fmt.Fprintf(w, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Configuration:\n")
	if cfg.Source.Kind == config.SourceCamera {
		fmt.Fprintf(w, "  Source:        camera %s @ %s\n", cfg.Source.Device, cfg.Source.Framerate)
	} else {
		fmt.Fprintf(w, "  Source:        test pattern %d (%dx%d)\n", cfg.Source.Pattern, cfg.Source.Width, cfg.Source.Height)
	}
	fmt.Fprintf(w, "  Muxer:         %dx%d batch=%d\n", cfg.Mux.Width, cfg.Mux.Height, cfg.Mux.BatchSize)
	fmt.Fprintf(w, "  Inference:     %s\n", cfg.Inference.ConfigFilePath)
	if cfg.Sink.Kind == config.SinkUDP {
		fmt.Fprintf(w, "  Sink:          udp %s:%d\n", cfg.Sink.Host, cfg.Sink.Port)
	} else {
		fmt.Fprintf(w, "  Sink:          %s\n", cfg.Sink.Kind)
	}
	fmt.Fprintf(w, "  Probe:         %s (report every %d)\n", cfg.Probe.Mode, cfg.Probe.ReportEvery)
	if cfg.MQTT.Broker != "" {
		fmt.Fprintf(w, "  MQTT:          %s → %s\n", cfg.MQTT.Broker, cfg.MQTT.Topic)
	}
	if cfg.Health.Addr != "" {
		fmt.Fprintf(w, "  Health:        %s\n", cfg.Health.Addr)
	}
	fmt.Fprintf(w, "\n")
}
