package graph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/prashanthag/deepstream-face-detection/internal/config"
)

func mustProfile(t *testing.T, name string) *config.Config {
	t.Helper()
	cfg, err := config.Profile(name)
	if err != nil {
		t.Fatalf("Profile(%s): %v", name, err)
	}
	return cfg
}

func factoriesOf(g *Graph) []string {
	out := make([]string, len(g.Elements))
	for i, e := range g.Elements {
		out[i] = e.Factory
	}
	return out
}

// chainFrom follows links starting at name and returns the visited factories
func chainFrom(g *Graph, name string) []string {
	next := make(map[string]string)
	for _, l := range g.Links {
		next[l.From] = l.To
	}
	var out []string
	for n := name; n != ""; n = next[n] {
		e, ok := g.Element(n)
		if !ok {
			break
		}
		out = append(out, e.Factory)
	}
	return out
}

func TestBuild_Topologies(t *testing.T) {
	tests := []struct {
		profile    string
		wantSource []string
		wantMain   []string
	}{
		{
			profile:    "console",
			wantSource: []string{"v4l2src", "capsfilter", "videoconvert", "nvvideoconvert", "capsfilter"},
			wantMain:   []string{"nvstreammux", "nvinfer", "nvvideoconvert", "nvdsosd", "fakesink"},
		},
		{
			profile:    "display",
			wantSource: []string{"v4l2src", "capsfilter", "videoconvert", "nvvideoconvert", "capsfilter"},
			wantMain: []string{"nvstreammux", "nvinfer", "nvvideoconvert", "nvdsosd",
				"nvvideoconvert", "capsfilter", "videoconvert", "xvimagesink"},
		},
		{
			profile:    "udp",
			wantSource: []string{"v4l2src", "capsfilter", "videoconvert", "nvvideoconvert", "capsfilter"},
			wantMain: []string{"nvstreammux", "nvinfer", "nvvideoconvert", "nvdsosd",
				"nvvideoconvert", "capsfilter", "nvv4l2h264enc", "rtph264pay", "udpsink"},
		},
		{
			profile:    "test-pattern",
			wantSource: []string{"videotestsrc", "capsfilter", "nvvideoconvert", "capsfilter"},
			wantMain:   []string{"nvstreammux", "nvinfer", "nvvideoconvert", "nvdsosd", "fakesink"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			g, err := Build(mustProfile(t, tt.profile))
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			gotSource := chainFrom(g, SourceName)
			if strings.Join(gotSource, ",") != strings.Join(tt.wantSource, ",") {
				t.Errorf("source branch:\n got  %v\n want %v", gotSource, tt.wantSource)
			}

			gotMain := chainFrom(g, MuxName)
			if strings.Join(gotMain, ",") != strings.Join(tt.wantMain, ",") {
				t.Errorf("main branch:\n got  %v\n want %v", gotMain, tt.wantMain)
			}

			// Every element must be reachable from one of the two heads
			if len(gotSource)+len(gotMain) != len(g.Elements) {
				t.Errorf("unlinked elements: %d in graph, %d reachable (%v)",
					len(g.Elements), len(gotSource)+len(gotMain), factoriesOf(g))
			}

			if g.ProbeElement != OverlayName {
				t.Errorf("probe must be on overlay, got %s", g.ProbeElement)
			}
			if mux, _ := g.Element(g.MuxSource); mux.Factory != "capsfilter" {
				t.Errorf("mux source should be the NVMM capsfilter, got %s", mux.Factory)
			}
		})
	}
}

func TestBuild_Properties(t *testing.T) {
	cfg := mustProfile(t, "udp")
	cfg.Source.Device = "/dev/video3"
	cfg.Sink.Port = 5600

	g, err := Build(cfg)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]map[string]string{
		SourceName:  {"device": "/dev/video3"},
		"nvmm_caps": {"caps": `"video/x-raw(memory:NVMM)"`},
		MuxName: {
			"width": "1920", "height": "1080",
			"batch-size": "1", "batched-push-timeout": "4000000",
		},
		InferName: {"config-file-path": config.DefaultInferConfig},
		SinkName: {
			"host": "224.224.255.255", "port": "5600",
			"async": "false", "sync": "true",
		},
		"encoder_caps": {"caps": `"video/x-raw(memory:NVMM), format=I420"`},
	}

	for name, props := range want {
		el, ok := g.Element(name)
		if !ok {
			t.Errorf("element %s missing", name)
			continue
		}
		got := make(map[string]string)
		for _, p := range el.Props {
			got[p.Key] = p.String()
		}
		for k, v := range props {
			if got[k] != v {
				t.Errorf("%s.%s = %s, want %s", name, k, got[k], v)
			}
		}
	}
}

func TestBuild_CameraCapsWithResolution(t *testing.T) {
	cfg := mustProfile(t, "simple-display")
	g, err := Build(cfg)
	if err != nil {
		t.Fatal(err)
	}

	caps, _ := g.Element("v4l2src_caps")
	if got := caps.Props[0].Value; got != "video/x-raw, width=640, height=480, framerate=30/1" {
		t.Errorf("camera caps = %v", got)
	}

	mux, _ := g.Element(MuxName)
	if mux.Props[0].Value != 640 || mux.Props[1].Value != 480 {
		t.Errorf("mux should match camera size, got %v", mux.Props)
	}
}

func TestFactories_Distinct(t *testing.T) {
	g, err := Build(mustProfile(t, "display"))
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, f := range g.Factories() {
		if seen[f] {
			t.Errorf("duplicate factory %s", f)
		}
		seen[f] = true
	}
	for _, f := range []string{"v4l2src", "nvstreammux", "nvinfer", "nvdsosd", "xvimagesink"} {
		if !seen[f] {
			t.Errorf("factory %s missing from %v", f, g.Factories())
		}
	}
}

func TestLaunchString(t *testing.T) {
	g, err := Build(mustProfile(t, "console"))
	if err != nil {
		t.Fatal(err)
	}

	s := g.LaunchString()

	for _, want := range []string{
		"v4l2src name=camera-source device=/dev/video0 ! ",
		`capsfilter name=nvmm_caps caps="video/x-raw(memory:NVMM)" ! stream-muxer.sink_0`,
		"nvstreammux name=stream-muxer width=1920 height=1080 batch-size=1 batched-push-timeout=4000000 ! nvinfer",
		"nvdsosd name=onscreendisplay ! fakesink name=sink sync=false",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("launch string missing %q\n%s", want, s)
		}
	}

	// Source branch comes first, then the mux chain
	if !strings.HasPrefix(s, "v4l2src") {
		t.Errorf("launch string should start with the source: %s", s)
	}
}

func TestCameraTest(t *testing.T) {
	tests := []struct {
		name     string
		opts     CameraTestOptions
		wantSink string
		wantLine string
	}{
		{
			name:     "fakesink",
			opts:     CameraTestOptions{Device: "/dev/video0", Width: 640, Height: 480, Framerate: "30/1", Dump: true},
			wantSink: "fakesink",
			wantLine: "videoscale name=scale ! fakesink name=sink sync=false dump=true",
		},
		{
			name:     "display",
			opts:     CameraTestOptions{Device: "/dev/video2", Width: 1280, Height: 720, Framerate: "15/1", Display: true},
			wantSink: "xvimagesink",
			wantLine: "videoscale name=scale ! xvimagesink name=sink sync=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := CameraTest(tt.opts)

			want := []string{"v4l2src", "capsfilter", "videoconvert", "videoscale", tt.wantSink}
			if got := chainFrom(g, SourceName); strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("chain = %v, want %v", got, want)
			}
			if g.MuxSource != "" {
				t.Errorf("MuxSource = %q, want none", g.MuxSource)
			}
			if g.ProbeElement != SinkName {
				t.Errorf("ProbeElement = %q, want %q", g.ProbeElement, SinkName)
			}
			for _, f := range g.Factories() {
				if strings.HasPrefix(f, "nv") {
					t.Errorf("camera test graph contains DeepStream factory %s", f)
				}
			}

			s := g.LaunchString()
			caps := fmt.Sprintf(`caps="video/x-raw, width=%d, height=%d, framerate=%s"`,
				tt.opts.Width, tt.opts.Height, tt.opts.Framerate)
			for _, w := range []string{"v4l2src name=camera-source device=" + tt.opts.Device, caps, tt.wantLine} {
				if !strings.Contains(s, w) {
					t.Errorf("launch string missing %q\n%s", w, s)
				}
			}
			if strings.Contains(s, MuxName) {
				t.Errorf("launch string references the muxer: %s", s)
			}
		})
	}
}
