// Package dsapp drives NVIDIA's deepstream-app reference application.
//
// It renders deepstream-app INI configs (application, tiled-display,
// source0, streammux, primary-gie, sink0) and runs the binary as a child
// process tied to a context.
package dsapp

import (
	"fmt"
	"os"
	"strings"
)

// DeepStreamRoot is the default SDK install prefix
const DeepStreamRoot = "/opt/nvidia/deepstream/deepstream"

// SampleConfig is the bundled USB camera + ResNet detector config
const SampleConfig = DeepStreamRoot + "/samples/configs/deepstream-app/source1_usb_dec_infer_resnet_int8.txt"

// Section is one [group] of a deepstream-app config, in key order
type Section struct {
	Name string
	Keys []string
	vals map[string]string
}

// AppConfig is an ordered set of sections
type AppConfig struct {
	Sections []*Section
}

// Section returns the named section, creating it at the end if missing
func (c *AppConfig) Section(name string) *Section {
	for _, s := range c.Sections {
		if s.Name == name {
			return s
		}
	}
	s := &Section{Name: name, vals: make(map[string]string)}
	c.Sections = append(c.Sections, s)
	return s
}

// Set assigns key, keeping the original position when the key already exists
func (s *Section) Set(key string, value interface{}) *Section {
	if s.vals == nil {
		s.vals = make(map[string]string)
	}
	if _, ok := s.vals[key]; !ok {
		s.Keys = append(s.Keys, key)
	}
	s.vals[key] = fmt.Sprint(value)
	return s
}

// Get returns the value of key
func (s *Section) Get(key string) (string, bool) {
	v, ok := s.vals[key]
	return v, ok
}

// Render writes the config in deepstream-app key-file syntax
func (c *AppConfig) Render() string {
	var b strings.Builder
	for i, s := range c.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s]\n", s.Name)
		for _, k := range s.Keys {
			fmt.Fprintf(&b, "%s=%s\n", k, s.vals[k])
		}
	}
	return b.String()
}

// USBOptions parameterizes the USB camera config
type USBOptions struct {
	// DeviceNode is N in /dev/videoN
	DeviceNode int
	Width      int
	Height     int
	Framerate  int
	// InferConfig is the nvinfer config-file-path
	InferConfig string
	// ModelEngine is an optional prebuilt engine file
	ModelEngine string
}

// DefaultUSBOptions returns /dev/video0 at 640x480@30 with the sample detector
func DefaultUSBOptions() USBOptions {
	return USBOptions{
		DeviceNode:  0,
		Width:       640,
		Height:      480,
		Framerate:   30,
		InferConfig: DeepStreamRoot + "/samples/configs/deepstream-app/config_infer_primary.txt",
		ModelEngine: DeepStreamRoot + "/samples/models/Primary_Detector/resnet18_trafficcamnet_pruned.onnx_b30_gpu0_fp16.engine",
	}
}

// USBCameraConfig builds a single-camera detection config with an on-screen sink
func USBCameraConfig(o USBOptions) *AppConfig {
	c := &AppConfig{}

	c.Section("application").
		Set("enable-perf-measurement", 1).
		Set("perf-measurement-interval-sec", 5)

	c.Section("tiled-display").
		Set("enable", 1).
		Set("rows", 1).
		Set("columns", 1).
		Set("width", 1280).
		Set("height", 720)

	c.Section("source0").
		Set("enable", 1).
		Set("type", 1). // 1 = CameraV4L2
		Set("camera-v4l2-dev-node", o.DeviceNode).
		Set("width", o.Width).
		Set("height", o.Height).
		Set("framerate", o.Framerate)

	c.Section("streammux").
		Set("gpu-id", 0).
		Set("batch-size", 1).
		Set("batched-push-timeout", 40000).
		Set("width", 1920).
		Set("height", 1080)

	gie := c.Section("primary-gie").
		Set("enable", 1).
		Set("gpu-id", 0).
		Set("batch-size", 1).
		Set("bbox-border-color0", "1;0;0;1").
		Set("bbox-border-color1", "0;1;1;1").
		Set("bbox-border-color2", "0;0;1;1").
		Set("bbox-border-color3", "0;1;0;1").
		Set("interval", 0).
		Set("gie-unique-id", 1)
	if o.ModelEngine != "" {
		gie.Set("model-engine-file", o.ModelEngine)
	}
	gie.Set("config-file-path", o.InferConfig)

	c.Section("sink0").
		Set("enable", 1).
		Set("type", 2). // 2 = EglSink
		Set("sync", 0).
		Set("source-id", 0).
		Set("gpu-id", 0).
		Set("nvbuf-memory-type", 0)

	return c
}

// WriteTemp writes cfg to a new temporary file and returns its path.
// The caller removes the file.
func WriteTemp(cfg *AppConfig) (string, error) {
	f, err := os.CreateTemp("", "usb_camera_detection-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}

	if _, err := f.WriteString(cfg.Render()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close config file: %w", err)
	}
	return f.Name(), nil
}
