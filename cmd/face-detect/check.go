package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/prashanthag/deepstream-face-detection/internal/config"
	"github.com/prashanthag/deepstream-face-detection/internal/deepstream"
	"github.com/prashanthag/deepstream-face-detection/internal/devcheck"
	"github.com/prashanthag/deepstream-face-detection/internal/graph"
	"github.com/prashanthag/deepstream-face-detection/internal/nvds"
)

func checkCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	devices := fs.String("devices", strings.Join(devcheck.DefaultDevices, ","), "Comma-separated device nodes to probe")
	profile := fs.String("profile", "display", "Profile whose factories are checked")

	camera := fs.Bool("camera", false, "Run a camera-only pipeline (no DeepStream elements) instead of the report")
	device := fs.String("device", "/dev/video0", "Camera device for --camera")
	width := fs.Int("width", 640, "Capture width for --camera")
	height := fs.Int("height", 480, "Capture height for --camera")
	framerate := fs.String("framerate", "30/1", "Capture framerate for --camera")
	display := fs.Bool("display", false, "Show the camera in an xvimagesink window (--camera)")
	dump := fs.Bool("dump", false, "Hexdump every buffer on fakesink (--camera)")
	duration := fs.Duration("duration", 30*time.Second, "Stop the camera pipeline after this long, 0 runs until interrupted")
	dryRun := fs.Bool("dry-run", false, "Print the camera pipeline as a gst-launch line and exit (--camera)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return usageErr("%v", err)
	}
	setupLogging(stderr, false, false)

	if *camera {
		if *width <= 0 || *height <= 0 {
			return usageErr("invalid capture size %dx%d", *width, *height)
		}
		if _, _, err := config.ParseFraction(*framerate); err != nil {
			return usageErr("invalid framerate: %v", err)
		}
		if *duration < 0 {
			return usageErr("duration must be >= 0")
		}
		g := graph.CameraTest(graph.CameraTestOptions{
			Device:    *device,
			Width:     *width,
			Height:    *height,
			Framerate: *framerate,
			Display:   *display,
			Dump:      *dump,
		})
		if *dryRun {
			fmt.Fprintf(stdout, "gst-launch-1.0 -e %s\n", g.LaunchString())
			return nil
		}
		return cameraTest(ctx, g, *duration, stdout)
	}

	cfg, err := config.Profile(*profile)
	if err != nil {
		return usageErr("%v", err)
	}
	g, err := graph.Build(cfg)
	if err != nil {
		return err
	}

	report := devcheck.Report{
		Devices:  devcheck.ProbeDevices(splitList(*devices)),
		Plugins:  devcheck.CheckPlugins(g.Factories(), deepstream.CheckFactories),
		Metadata: nvds.Available(),
	}
	if _, err := report.WriteTo(stdout); err != nil {
		return err
	}

	if !report.OK() {
		return fmt.Errorf("environment check failed")
	}
	fmt.Fprintln(stdout, "\nEnvironment OK")
	return nil
}

// cameraTest runs g until EOS, error, duration or ctx cancellation and
// reports how many frames reached the sink.
func cameraTest(ctx context.Context, g *graph.Graph, duration time.Duration, stdout io.Writer) error {
	elements, err := deepstream.CreatePipeline(g)
	if err != nil {
		return err
	}
	defer deepstream.DestroyPipeline(elements)

	var frames atomic.Uint64
	if err := deepstream.AttachProbe(elements, func(unsafe.Pointer) { frames.Add(1) }); err != nil {
		return err
	}

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	fmt.Fprintf(stdout, "Starting camera test: %s\n", g.LaunchString())
	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start camera pipeline: %w", err)
	}

	start := time.Now()
	err = deepstream.MonitorBus(ctx, elements.Pipeline, deepstream.BusHandler{
		OnPlaying: func() { fmt.Fprintln(stdout, "Pipeline running. Press Ctrl+C to stop.") },
	})
	elapsed := time.Since(start)

	n := frames.Load()
	fmt.Fprintf(stdout, "Camera test: %d frames in %s (%.1f fps)\n", n, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())

	if err != nil && !errors.Is(err, deepstream.ErrEndOfStream) {
		return err
	}
	if n == 0 {
		return fmt.Errorf("camera delivered no frames")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
