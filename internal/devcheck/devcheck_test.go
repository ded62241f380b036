package devcheck

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProbeDevices(t *testing.T) {
	dir := t.TempDir()

	readable := filepath.Join(dir, "video0")
	if err := os.WriteFile(readable, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "video9")

	orig := queryV4L2
	defer func() { queryV4L2 = orig }()
	queryV4L2 = func(path string) (*V4L2Info, error) {
		return &V4L2Info{Driver: "uvcvideo", Card: "Test Cam", Capture: true}, nil
	}

	got := ProbeDevices([]string{readable, missing})
	if len(got) != 2 {
		t.Fatalf("got %d results", len(got))
	}

	if !got[0].Exists || !got[0].Openable || got[0].Err != "" {
		t.Errorf("readable node: %+v", got[0])
	}
	if got[0].Info == nil || got[0].Info.Card != "Test Cam" {
		t.Errorf("v4l2 info not recorded: %+v", got[0].Info)
	}
	if got[1].Exists || got[1].Openable || got[1].Info != nil {
		t.Errorf("missing node: %+v", got[1])
	}
}

func TestProbeDevices_RegularFileIsNotV4L2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(path, []byte("not a camera"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := ProbeDevices([]string{path})[0]
	if !got.Openable || got.Info != nil {
		t.Errorf("regular file should open without v4l2 info: %+v", got)
	}
}

func TestProbeDevices_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can open any file")
	}
	path := filepath.Join(t.TempDir(), "video1")
	if err := os.WriteFile(path, nil, 0o000); err != nil {
		t.Fatal(err)
	}

	got := ProbeDevices([]string{path})[0]
	if !got.Exists || got.Openable || got.Err != "permission denied" {
		t.Errorf("got %+v", got)
	}
}

func TestCheckPlugins(t *testing.T) {
	missing := func(names []string) []string { return []string{"nvinfer"} }

	got := CheckPlugins([]string{"v4l2src", "nvinfer"}, missing)
	if !got[0].Available || got[1].Available {
		t.Errorf("got %+v", got)
	}
}

func TestReport(t *testing.T) {
	r := Report{
		Devices: []DeviceStatus{{Path: "/dev/video0", Exists: true, Openable: true,
			Info: &V4L2Info{Driver: "uvcvideo", Card: "HD Webcam"}}},
		Plugins: []PluginStatus{{Factory: "nvinfer", Available: true}},
	}
	if !r.OK() {
		t.Error("report should be OK")
	}

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo returned %d, wrote %d", n, buf.Len())
	}
	out := buf.String()
	for _, want := range []string{"DEVICE", "/dev/video0", "HD Webcam (uvcvideo)", "nvinfer", "nvds metadata"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	r.Plugins[0].Available = false
	if r.OK() {
		t.Error("missing plugin should fail the report")
	}
	r.Plugins = nil
	r.Devices[0].Openable = false
	if r.OK() {
		t.Error("no openable camera should fail the report")
	}
}
