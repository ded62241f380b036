package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds
const (
	SourceCamera = "camera"
	SourceTest   = "test"
)

// Sink kinds
const (
	SinkFake    = "fake"
	SinkDisplay = "display"
	SinkUDP     = "udp"
)

// Probe modes
const (
	ProbeCount    = "count"
	ProbeMetadata = "metadata"
	ProbeAuto     = "auto"
)

// Payload encodings for the MQTT emitter
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// DefaultInferConfig is the primary detector config shipped with the DeepStream SDK
const DefaultInferConfig = "/opt/nvidia/deepstream/deepstream/samples/configs/deepstream-app/config_infer_primary.txt"

// DefaultTestPattern is the videotestsrc "ball" pattern
const DefaultTestPattern = 18

// Config represents the complete face detection pipeline configuration
type Config struct {
	Name             string          `yaml:"name"`
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"` // Teardown timeout in seconds (default: 5)
	Source           SourceConfig    `yaml:"source"`
	Mux              MuxConfig       `yaml:"mux"`
	Inference        InferenceConfig `yaml:"inference"`
	Sink             SinkConfig      `yaml:"sink"`
	Probe            ProbeConfig     `yaml:"probe"`
	MQTT             MQTTConfig      `yaml:"mqtt"`
	Health           HealthConfig    `yaml:"health"`
}

// SourceConfig selects and configures the video source
type SourceConfig struct {
	Kind      string `yaml:"kind"`      // camera, test
	Device    string `yaml:"device"`    // V4L2 device node (camera only)
	Width     int    `yaml:"width"`     // 0 = let the camera negotiate
	Height    int    `yaml:"height"`    // 0 = let the camera negotiate
	Framerate string `yaml:"framerate"` // GStreamer fraction, e.g. 30/1
	Pattern   int    `yaml:"pattern"`   // videotestsrc pattern (test only, 0 = smpte)
}

// MuxConfig contains nvstreammux properties
type MuxConfig struct {
	Width                int `yaml:"width"`
	Height               int `yaml:"height"`
	BatchSize            int `yaml:"batch_size"`
	BatchedPushTimeoutUS int `yaml:"batched_push_timeout_us"`
}

// InferenceConfig contains nvinfer properties
type InferenceConfig struct {
	ConfigFilePath string `yaml:"config_file_path"`
}

// SinkConfig selects and configures the output branch
type SinkConfig struct {
	Kind  string `yaml:"kind"` // fake, display, udp
	Sync  *bool  `yaml:"sync,omitempty"`
	Async *bool  `yaml:"async,omitempty"`
	Host  string `yaml:"host"` // udp only
	Port  int    `yaml:"port"` // udp only
}

// ProbeConfig controls the overlay sink-pad probe
type ProbeConfig struct {
	Mode          string  `yaml:"mode"`         // count, metadata, auto
	ReportEvery   int     `yaml:"report_every"` // frames between progress lines
	FaceClassID   int     `yaml:"face_class_id"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// MQTTConfig contains broker settings for detection events (disabled when Broker is empty)
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Encoding string `yaml:"encoding"` // json, msgpack
}

// HealthConfig contains the health endpoint settings (disabled when Addr is empty)
type HealthConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes on top of Default() and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used by the console detection script:
// USB camera on /dev/video0, 1080p mux, primary detector, fakesink.
func Default() *Config {
	return &Config{
		Name:             "console-detection",
		ShutdownTimeoutS: 5,
		Source: SourceConfig{
			Kind:      SourceCamera,
			Device:    "/dev/video0",
			Framerate: "30/1",
			Pattern:   DefaultTestPattern,
		},
		Mux: MuxConfig{
			Width:                1920,
			Height:               1080,
			BatchSize:            1,
			BatchedPushTimeoutUS: 4000000,
		},
		Inference: InferenceConfig{
			ConfigFilePath: DefaultInferConfig,
		},
		Sink: SinkConfig{
			Kind: SinkFake,
		},
		Probe: ProbeConfig{
			Mode:        ProbeAuto,
			ReportEvery: 30,
			FaceClassID: 0,
		},
		MQTT: MQTTConfig{
			Topic:    "deepstream/detections",
			QoS:      0,
			Encoding: EncodingJSON,
		},
	}
}

// ShutdownTimeout returns the teardown timeout as a duration
func (c *Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// Bool returns a pointer to b, for the optional sink flags
func Bool(b bool) *bool {
	return &b
}
