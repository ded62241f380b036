package facedetection

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prashanthag/deepstream-face-detection/internal/config"
	"github.com/prashanthag/deepstream-face-detection/internal/deepstream"
	"github.com/prashanthag/deepstream-face-detection/internal/nvds"
	"github.com/prashanthag/deepstream-face-detection/internal/probe"
)

func newTestRunner(t *testing.T, profile string) *Runner {
	t.Helper()
	cfg, err := config.Profile(profile)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestNewRunner_Validation(t *testing.T) {
	if _, err := NewRunner(nil); err == nil {
		t.Error("nil config should fail")
	}

	cfg := config.Default()
	cfg.Sink.Kind = "hologram"
	if _, err := NewRunner(cfg); err == nil || !strings.Contains(err.Error(), "sink.kind") {
		t.Errorf("invalid sink should fail fast, got %v", err)
	}
}

func TestNewRunner_InitialStats(t *testing.T) {
	r := newTestRunner(t, "console")

	st := r.Stats()
	if st.State != StateIdle || st.FramesProcessed != 0 || st.Uptime != 0 {
		t.Errorf("initial stats = %+v", st)
	}
	if st.RunID == "" {
		t.Error("RunID should be set")
	}
	if st.MetadataMode != "metadata" {
		t.Errorf("auto mode should start in metadata, got %s", st.MetadataMode)
	}
	if len(st.ErrorsByCategory) != len(deepstream.Categories) {
		t.Errorf("ErrorsByCategory = %v", st.ErrorsByCategory)
	}
	if r.Graph().ProbeElement != "onscreendisplay" {
		t.Errorf("probe element = %s", r.Graph().ProbeElement)
	}
}

func TestSourceName(t *testing.T) {
	if got := SourceName(config.SourceConfig{Kind: config.SourceCamera, Device: "/dev/video2"}); got != "video2" {
		t.Errorf("camera source name = %s", got)
	}
	if got := SourceName(config.SourceConfig{Kind: config.SourceTest}); got != "test-pattern" {
		t.Errorf("test source name = %s", got)
	}
}

func TestRunner_OnReport(t *testing.T) {
	r := newTestRunner(t, "console")
	var out bytes.Buffer
	r.SetOutput(&out)

	extra := make(chan DetectionEvent, 4)
	if err := r.Subscribe("extra", extra); err != nil {
		t.Fatal(err)
	}

	frame := nvds.FrameMeta{FrameNum: 5, Objects: []nvds.ObjectMeta{
		{ClassID: 0, Confidence: 0.9, Rect: nvds.Rect{Left: 1, Top: 2, Width: 3, Height: 4}},
		{ClassID: 0, Confidence: 0.8, Rect: nvds.Rect{Left: 5, Top: 6, Width: 7, Height: 8}},
	}}
	fr := nvds.Summarize(frame, 0, 0)
	r.onReport(probe.Report{
		Seq:    9,
		Mode:   probe.ModeMetadata,
		Frames: []nvds.FrameReport{fr, {FrameNum: 6}},
		Lines:  nvds.Format(fr),
	})

	if !strings.Contains(out.String(), "Frame 5: Total faces detected: 2") {
		t.Errorf("console output = %q", out.String())
	}

	select {
	case ev := <-r.Detections():
		if ev.FrameNum != 5 || ev.Total != 2 || ev.Seq != 9 || ev.Source != "video0" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Faces[1].Left != 5 || ev.RunID != r.Stats().RunID || ev.EventID == "" {
			t.Errorf("event faces/ids = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no detection event")
	}
	if len(extra) != 1 {
		t.Errorf("extra subscriber got %d events", len(extra))
	}

	st := r.Stats()
	if st.FacesDetected != 2 || st.FramesWithFaces != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRunner_EventsDroppedAfterClose(t *testing.T) {
	r := newTestRunner(t, "console")
	r.SetOutput(&bytes.Buffer{})

	stalled := make(chan DetectionEvent) // never read
	if err := r.Subscribe("stalled", stalled); err != nil {
		t.Fatal(err)
	}

	frame := nvds.FrameMeta{FrameNum: 1, Objects: []nvds.ObjectMeta{
		{ClassID: 0, Confidence: 0.9, Rect: nvds.Rect{Width: 10, Height: 10}},
	}}
	fr := nvds.Summarize(frame, 0, 0)
	for i := 0; i < 2; i++ {
		r.onReport(probe.Report{Seq: uint64(i), Frames: []nvds.FrameReport{fr}})
	}

	if got := r.Stats().EventsDropped; got != 2 {
		t.Fatalf("EventsDropped = %d, want 2", got)
	}

	r.closeEvents()
	if got := r.Stats().EventsDropped; got != 2 {
		t.Errorf("EventsDropped after close = %d, want 2", got)
	}
}

func TestRunner_CountError(t *testing.T) {
	r := newTestRunner(t, "console")
	r.countError(deepstream.ErrCategoryDevice)
	r.countError(deepstream.ErrCategoryDevice)
	r.countError(deepstream.ErrCategoryNegotiation)

	errs := r.Stats().ErrorsByCategory
	if errs["device"] != 2 || errs["negotiation"] != 1 || errs["unknown"] != 0 {
		t.Errorf("ErrorsByCategory = %v", errs)
	}
}

func TestRunner_OnPlaying(t *testing.T) {
	r := newTestRunner(t, "console")
	r.onPlaying()
	time.Sleep(10 * time.Millisecond)

	st := r.Stats()
	if st.State != StatePlaying || st.Uptime <= 0 {
		t.Errorf("after PLAYING: %+v", st)
	}
}

func TestRunner_ApplyConfig(t *testing.T) {
	r := newTestRunner(t, "console")

	next := *r.cfg
	next.Probe.ReportEvery = 5
	next.Probe.MinConfidence = 0.6
	r.ApplyConfig(&next, config.Diff(r.cfg, &next))

	if r.probe.ReportEvery() != 5 {
		t.Errorf("ReportEvery = %d", r.probe.ReportEvery())
	}
	if got := r.probe.MinConfidence(); got < 0.59 || got > 0.61 {
		t.Errorf("MinConfidence = %f", got)
	}
}

func TestRunner_RunOnce(t *testing.T) {
	r := newTestRunner(t, "console")
	r.used.Store(true)
	if err := r.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("second Run = %v, want ErrAlreadyRun", err)
	}
}

func TestRunState_String(t *testing.T) {
	want := map[RunState]string{
		StateIdle: "idle", StateStarting: "starting", StatePlaying: "playing",
		StateStopping: "stopping", StateStopped: "stopped", RunState(42): "unknown",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("%d.String() = %s, want %s", s, s.String(), w)
		}
	}
}

// TestRunner_TestPattern plays the videotestsrc profile for a moment.
// Requires GStreamer with the DeepStream plugins installed.
func TestRunner_TestPattern(t *testing.T) {
	if os.Getenv("FACE_DETECT_INTEGRATION") == "" {
		t.Skip("Skipping integration test (set FACE_DETECT_INTEGRATION=1 with DeepStream installed)")
	}

	r := newTestRunner(t, "test-pattern")
	if missing := deepstream.CheckFactories(r.Graph().Factories()); len(missing) > 0 {
		t.Skipf("Skipping: missing GStreamer factories %v", missing)
	}
	var out bytes.Buffer
	r.SetOutput(&out)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	st := r.Stats()
	if st.FramesProcessed == 0 {
		t.Error("no frames reached the probe")
	}
	if st.State != StateStopped {
		t.Errorf("state after Run = %s", st.State)
	}
	if _, ok := <-r.Detections(); ok {
		// drain: channel must be closed after Run
		for range r.Detections() {
		}
	}
	if !strings.Contains(out.String(), "Processed ") {
		t.Errorf("missing final frame count in output: %q", out.String())
	}
}
