package dsapp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestUSBCameraConfig_Render(t *testing.T) {
	out := USBCameraConfig(DefaultUSBOptions()).Render()

	var sections []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "[") {
			sections = append(sections, line)
		}
	}
	want := []string{"[application]", "[tiled-display]", "[source0]", "[streammux]", "[primary-gie]", "[sink0]"}
	if strings.Join(sections, ",") != strings.Join(want, ",") {
		t.Errorf("sections = %v, want %v", sections, want)
	}

	for _, line := range []string{
		"camera-v4l2-dev-node=0",
		"batched-push-timeout=40000",
		"bbox-border-color0=1;0;0;1",
		"config-file-path=" + DeepStreamRoot + "/samples/configs/deepstream-app/config_infer_primary.txt",
		"nvbuf-memory-type=0",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("rendered config missing %q", line)
		}
	}

	// Rendering is stable
	if again := USBCameraConfig(DefaultUSBOptions()).Render(); again != out {
		t.Error("Render is not deterministic")
	}
}

func TestUSBCameraConfig_Options(t *testing.T) {
	o := DefaultUSBOptions()
	o.DeviceNode = 2
	o.Width, o.Height = 1280, 720
	o.ModelEngine = ""

	cfg := USBCameraConfig(o)
	src := cfg.Section("source0")
	if v, _ := src.Get("camera-v4l2-dev-node"); v != "2" {
		t.Errorf("dev node = %s", v)
	}
	if v, _ := src.Get("width"); v != "1280" {
		t.Errorf("width = %s", v)
	}
	if _, ok := cfg.Section("primary-gie").Get("model-engine-file"); ok {
		t.Error("empty engine must not be rendered")
	}
}

func TestSection_SetKeepsOrder(t *testing.T) {
	c := &AppConfig{}
	c.Section("a").Set("x", 1).Set("y", 2).Set("x", 3)
	if got := c.Render(); got != "[a]\nx=3\ny=2\n" {
		t.Errorf("Render() = %q", got)
	}
}

func TestWriteTemp(t *testing.T) {
	cfg := USBCameraConfig(DefaultUSBOptions())
	path, err := WriteTemp(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != cfg.Render() {
		t.Error("file content differs from Render()")
	}
	if !strings.HasPrefix(filepath.Base(path), "usb_camera_detection-") {
		t.Errorf("unexpected name %s", path)
	}
}

// fakeApp writes a shell script standing in for deepstream-app
func fakeApp(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "fake-deepstream-app")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_ExitCode(t *testing.T) {
	bin := fakeApp(t, `[ "$1" = "-c" ] || exit 9; exit 3`)

	res, err := Run(context.Background(), RunOptions{
		Binary:     bin,
		ConfigPath: "/tmp/x.txt",
		WorkDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 || res.Interrupted {
		t.Errorf("result = %+v, want exit 3", res)
	}
}

func TestRun_WorkDir(t *testing.T) {
	dir := t.TempDir()
	bin := fakeApp(t, `pwd > marker`)

	if _, err := Run(context.Background(), RunOptions{Binary: bin, ConfigPath: "c", WorkDir: dir}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
		t.Errorf("process did not run in workdir: %v", err)
	}
}

func TestRun_Interrupt(t *testing.T) {
	bin := fakeApp(t, `trap 'exit 0' INT; while true; do sleep 0.05; done`)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	res, err := Run(ctx, RunOptions{Binary: bin, ConfigPath: "c", WorkDir: t.TempDir(), GracePeriod: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Interrupted {
		t.Errorf("expected interrupted result, got %+v", res)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	res, err := Run(context.Background(), RunOptions{
		Binary:     filepath.Join(t.TempDir(), "does-not-exist"),
		ConfigPath: "c",
		WorkDir:    t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d", res.ExitCode)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if _, err := Run(context.Background(), RunOptions{}); err == nil {
		t.Error("expected error without config path")
	}
}
