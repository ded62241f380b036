package config

import (
	"fmt"
	"regexp"
	"strconv"
)

var framerateRe = regexp.MustCompile(`^(\d+)/(\d+)$`)

// Validate checks if the configuration is valid and fills in defaults
// that depend on other fields.
func Validate(cfg *Config) error {
	if cfg.Name == "" {
		cfg.Name = "face-detection"
	}

	if err := validateSource(&cfg.Source); err != nil {
		return err
	}

	// Mux
	if cfg.Mux.Width <= 0 || cfg.Mux.Height <= 0 {
		return fmt.Errorf("mux.width and mux.height must be > 0 (got %dx%d)", cfg.Mux.Width, cfg.Mux.Height)
	}
	if cfg.Mux.BatchSize <= 0 {
		return fmt.Errorf("mux.batch_size must be > 0")
	}
	if cfg.Mux.BatchedPushTimeoutUS <= 0 {
		return fmt.Errorf("mux.batched_push_timeout_us must be > 0")
	}

	if cfg.Inference.ConfigFilePath == "" {
		return fmt.Errorf("inference.config_file_path is required")
	}

	if err := validateSink(&cfg.Sink); err != nil {
		return err
	}

	// Probe
	switch cfg.Probe.Mode {
	case "":
		cfg.Probe.Mode = ProbeAuto
	case ProbeCount, ProbeMetadata, ProbeAuto:
	default:
		return fmt.Errorf("probe.mode: unknown mode '%s' (must be count, metadata or auto)", cfg.Probe.Mode)
	}
	if cfg.Probe.ReportEvery <= 0 {
		cfg.Probe.ReportEvery = 30
	}
	if cfg.Probe.MinConfidence < 0 || cfg.Probe.MinConfidence > 1 {
		return fmt.Errorf("probe.min_confidence must be within [0, 1]")
	}

	// MQTT (optional)
	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "deepstream/detections"
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = cfg.Name
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
		switch cfg.MQTT.Encoding {
		case "":
			cfg.MQTT.Encoding = EncodingJSON
		case EncodingJSON, EncodingMsgpack:
		default:
			return fmt.Errorf("mqtt.encoding: unknown encoding '%s' (must be json or msgpack)", cfg.MQTT.Encoding)
		}
	}

	return nil
}

func validateSource(src *SourceConfig) error {
	switch src.Kind {
	case "":
		src.Kind = SourceCamera
		fallthrough
	case SourceCamera:
		if src.Device == "" {
			src.Device = "/dev/video0"
		}
	case SourceTest:
		if src.Width == 0 {
			src.Width = 640
		}
		if src.Height == 0 {
			src.Height = 480
		}
		if src.Pattern < 0 {
			return fmt.Errorf("source.pattern must not be negative")
		}
	default:
		return fmt.Errorf("source.kind: unknown kind '%s' (must be camera or test)", src.Kind)
	}

	if src.Width < 0 || src.Height < 0 {
		return fmt.Errorf("source dimensions must not be negative")
	}
	if (src.Width == 0) != (src.Height == 0) {
		return fmt.Errorf("source.width and source.height must be set together")
	}

	if src.Framerate == "" {
		src.Framerate = "30/1"
	}
	if _, _, err := ParseFraction(src.Framerate); err != nil {
		return fmt.Errorf("source.framerate: %w", err)
	}

	return nil
}

func validateSink(sink *SinkConfig) error {
	switch sink.Kind {
	case "":
		sink.Kind = SinkFake
	case SinkFake, SinkDisplay:
	case SinkUDP:
		if sink.Host == "" {
			sink.Host = "224.224.255.255"
		}
		if sink.Port == 0 {
			sink.Port = 5000
		}
		if sink.Port < 1 || sink.Port > 65535 {
			return fmt.Errorf("sink.port %d out of range (1-65535)", sink.Port)
		}
	default:
		return fmt.Errorf("sink.kind: unknown kind '%s' (must be fake, display or udp)", sink.Kind)
	}
	return nil
}

// ParseFraction parses a GStreamer fraction such as "30/1"
func ParseFraction(s string) (num, den int, err error) {
	m := framerateRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid fraction %q (expected N/D)", s)
	}
	num, _ = strconv.Atoi(m[1])
	den, _ = strconv.Atoi(m[2])
	if num == 0 || den == 0 {
		return 0, 0, fmt.Errorf("invalid fraction %q (zero term)", s)
	}
	return num, den, nil
}
