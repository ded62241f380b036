package config

import (
	"fmt"
	"sort"
)

// profiles reproduce the standalone detection scripts as presets.
var profiles = map[string]func() *Config{
	// USB camera → fakesink, progress lines on the console
	"console": func() *Config {
		cfg := Default()
		cfg.Name = "console-detection"
		cfg.Sink = SinkConfig{Kind: SinkFake, Sync: Bool(false)}
		return cfg
	},

	// USB camera → xvimagesink with overlay boxes
	"display": func() *Config {
		cfg := Default()
		cfg.Name = "deepstream-face-detection"
		cfg.Sink = SinkConfig{Kind: SinkDisplay, Sync: Bool(false), Async: Bool(false)}
		return cfg
	},

	// Small 640x480 display pipeline (mux matches the camera size)
	"simple-display": func() *Config {
		cfg := Default()
		cfg.Name = "simple-face-display"
		cfg.Source.Width = 640
		cfg.Source.Height = 480
		cfg.Mux.Width = 640
		cfg.Mux.Height = 480
		cfg.Sink = SinkConfig{Kind: SinkDisplay, Sync: Bool(false)}
		return cfg
	},

	// USB camera → H.264 RTP over UDP multicast
	"udp": func() *Config {
		cfg := Default()
		cfg.Name = "face-detection-udp"
		cfg.Probe.Mode = ProbeMetadata
		cfg.Sink = SinkConfig{
			Kind:  SinkUDP,
			Host:  "224.224.255.255",
			Port:  5000,
			Sync:  Bool(true),
			Async: Bool(false),
		}
		return cfg
	},

	// videotestsrc ball pattern, no camera needed
	"test-pattern": func() *Config {
		cfg := Default()
		cfg.Name = "deepstream-test"
		cfg.Source = SourceConfig{
			Kind:      SourceTest,
			Width:     640,
			Height:    480,
			Framerate: "30/1",
			Pattern:   DefaultTestPattern,
		}
		cfg.Probe.Mode = ProbeCount
		cfg.Sink = SinkConfig{Kind: SinkFake, Sync: Bool(false)}
		return cfg
	},
}

// Profile returns a validated configuration for a named preset
func Profile(name string) (*Config, error) {
	build, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile '%s' (available: %v)", name, ProfileNames())
	}

	cfg := build()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	return cfg, nil
}

// ProfileNames returns the preset names in sorted order
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
