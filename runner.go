package facedetection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"

	"github.com/prashanthag/deepstream-face-detection/internal/config"
	"github.com/prashanthag/deepstream-face-detection/internal/deepstream"
	"github.com/prashanthag/deepstream-face-detection/internal/eventbus"
	"github.com/prashanthag/deepstream-face-detection/internal/graph"
	"github.com/prashanthag/deepstream-face-detection/internal/probe"
	"github.com/prashanthag/deepstream-face-detection/internal/warmup"
)

// ErrAlreadyRun is returned when Run is called a second time
var ErrAlreadyRun = errors.New("face-detection: runner already used")

const (
	detectionsBuffer = 64
	fpsWindowSize    = 90
)

// Runner owns one pipeline run: build, play, probe, teardown.
// A Runner runs once; create a new one to restart.
type Runner struct {
	cfg    *config.Config
	graph  *graph.Graph
	runID  string
	source string

	probe  *probe.Probe
	events *eventbus.Bus[DetectionEvent]
	window *warmup.Window

	detections chan DetectionEvent
	out        io.Writer
	outMu      sync.Mutex

	// Lifecycle
	used         atomic.Bool
	state        atomic.Int32
	playingSince atomic.Int64 // unix nanos, 0 until PLAYING

	// Statistics (atomic for thread-safety)
	facesDetected   uint64
	framesWithFaces uint64
	errorCounts     [5]uint64 // indexed by deepstream.ErrorCategory
}

// NewRunner creates a runner with fail-fast validation.
//
// cfg is validated (defaults filled in) and the element graph is built,
// but no GStreamer object is created until Run.
func NewRunner(cfg *config.Config) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("face-detection: config is required")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("face-detection: invalid config: %w", err)
	}

	g, err := graph.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("face-detection: %w", err)
	}

	r := &Runner{
		cfg:        cfg,
		graph:      g,
		runID:      uuid.New().String(),
		source:     SourceName(cfg.Source),
		events:     eventbus.New[DetectionEvent](),
		window:     warmup.NewWindow(fpsWindowSize),
		detections: make(chan DetectionEvent, detectionsBuffer),
		out:        os.Stdout,
	}

	r.probe, err = probe.New(cfg.Probe, nil, r.onReport)
	if err != nil {
		return nil, fmt.Errorf("face-detection: %w", err)
	}

	if err := r.events.Subscribe("detections", r.detections); err != nil {
		return nil, fmt.Errorf("face-detection: %w", err)
	}

	return r, nil
}

// SourceName identifies the source in events and topics
func SourceName(src config.SourceConfig) string {
	if src.Kind == config.SourceTest {
		return "test-pattern"
	}
	return filepath.Base(src.Device)
}

// SetOutput redirects the console detection lines (default os.Stdout)
func (r *Runner) SetOutput(w io.Writer) {
	r.outMu.Lock()
	r.out = w
	r.outMu.Unlock()
}

// Graph returns the element graph the runner will play
func (r *Runner) Graph() *graph.Graph {
	return r.graph
}

// Detections returns events for frames with at least one face.
//
// The channel is buffered; events are dropped when it is full. It is
// closed when Run returns.
func (r *Runner) Detections() <-chan DetectionEvent {
	return r.detections
}

// Subscribe adds another DropNew consumer of detection events.
// ch is not closed by the runner.
func (r *Runner) Subscribe(id string, ch chan<- DetectionEvent) error {
	return r.events.Subscribe(id, ch)
}

// Run plays the pipeline until ctx is cancelled, EOS, or a pipeline error.
//
// Steps:
//  1. Create the pipeline from the graph
//  2. Attach the buffer probe on the overlay sink pad
//  3. Set PLAYING (fails if the state change is refused)
//  4. Monitor the bus
//  5. Always tear down to NULL
//
// Cancellation and EOS return nil. A bus error returns *deepstream.PipelineError.
func (r *Runner) Run(ctx context.Context) error {
	if !r.used.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	defer r.closeEvents()

	r.setState(StateStarting)

	slog.Info("face-detection: creating pipeline",
		"run_id", r.runID,
		"source", r.cfg.Source.Kind,
		"sink", r.cfg.Sink.Kind,
		"probe_mode", r.cfg.Probe.Mode,
	)
	slog.Debug("face-detection: pipeline description", "launch", r.graph.LaunchString())

	elements, err := deepstream.CreatePipeline(r.graph)
	if err != nil {
		r.setState(StateStopped)
		return fmt.Errorf("face-detection: %w", err)
	}
	defer r.teardown(elements)

	if err := deepstream.AttachProbe(elements, r.onBuffer); err != nil {
		return fmt.Errorf("face-detection: %w", err)
	}

	slog.Info("face-detection: starting pipeline")
	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("face-detection: failed to start pipeline: %w", err)
	}

	err = deepstream.MonitorBus(ctx, elements.Pipeline, deepstream.BusHandler{
		OnError:   r.countError,
		OnPlaying: r.onPlaying,
	})
	if errors.Is(err, deepstream.ErrEndOfStream) {
		return nil
	}
	return err
}

// teardown sets the pipeline to NULL, bounded by the shutdown timeout
func (r *Runner) teardown(elements *deepstream.PipelineElements) {
	r.setState(StateStopping)
	slog.Info("face-detection: stopping pipeline")

	done := make(chan error, 1)
	go func() {
		done <- deepstream.DestroyPipeline(elements)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("face-detection: failed to destroy pipeline", "error", err)
		}
	case <-time.After(r.cfg.ShutdownTimeout()):
		slog.Warn("face-detection: teardown timeout exceeded, pipeline may still be stopping",
			"timeout", r.cfg.ShutdownTimeout(),
		)
	}

	r.setState(StateStopped)

	st := r.Stats()
	slog.Info("face-detection: pipeline stopped",
		"frames_processed", st.FramesProcessed,
		"faces_detected", st.FacesDetected,
		"uptime", st.Uptime,
	)
	r.println(fmt.Sprintf("Processed %d frames", st.FramesProcessed))
}

// closeEvents stops event delivery. The streaming thread is gone by now,
// and the closed bus rejects any late Publish.
func (r *Runner) closeEvents() {
	r.events.Close()
	close(r.detections)
}

// onBuffer runs on the streaming thread for every buffer at the overlay
func (r *Runner) onBuffer(buffer unsafe.Pointer) {
	r.window.Add(time.Now())
	r.probe.Handle(buffer)

	if every := uint64(r.probe.ReportEvery()); r.probe.Frames()%every == 0 {
		fps := r.window.Stats()
		slog.Debug("face-detection: throughput",
			"frames", r.probe.Frames(),
			"fps", fmt.Sprintf("%.2f", fps.FPSMean),
			"fps_stddev", fmt.Sprintf("%.2f", fps.FPSStdDev),
			"stable", fps.IsStable,
		)
	}
}

// onReport prints probe lines and turns face summaries into events
func (r *Runner) onReport(rep probe.Report) {
	for _, line := range rep.Lines {
		r.println(line)
	}

	now := time.Now()
	for _, fr := range rep.Frames {
		if fr.Total == 0 {
			continue
		}
		atomic.AddUint64(&r.framesWithFaces, 1)
		atomic.AddUint64(&r.facesDetected, uint64(fr.Total))

		ev := DetectionEvent{
			EventID:   uuid.New().String(),
			RunID:     r.runID,
			Source:    r.source,
			FrameNum:  fr.FrameNum,
			Seq:       rep.Seq,
			Faces:     make([]Face, len(fr.Faces)),
			Total:     fr.Total,
			Timestamp: now,
		}
		for i, f := range fr.Faces {
			ev.Faces[i] = Face{
				Index:      f.Index,
				Left:       f.Rect.Left,
				Top:        f.Rect.Top,
				Width:      f.Rect.Width,
				Height:     f.Rect.Height,
				Confidence: f.Confidence,
			}
		}
		r.events.Publish(ev)
	}
}

func (r *Runner) println(line string) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintln(r.out, line)
}

func (r *Runner) countError(category deepstream.ErrorCategory) {
	if int(category) < len(r.errorCounts) {
		atomic.AddUint64(&r.errorCounts[category], 1)
	}
}

func (r *Runner) onPlaying() {
	r.playingSince.CompareAndSwap(0, time.Now().UnixNano())
	r.setState(StatePlaying)
	slog.Info("face-detection: pipeline playing", "run_id", r.runID)
}

func (r *Runner) setState(s RunState) {
	r.state.Store(int32(s))
}

// Stats returns current run statistics
//
// Thread-safe - uses atomic operations for counters.
func (r *Runner) Stats() RunStats {
	errs := make(map[string]uint64, len(deepstream.Categories))
	for _, c := range deepstream.Categories {
		errs[c.String()] = atomic.LoadUint64(&r.errorCounts[c])
	}

	var uptime time.Duration
	if since := r.playingSince.Load(); since > 0 {
		uptime = time.Since(time.Unix(0, since))
	}

	return RunStats{
		RunID:            r.runID,
		FramesProcessed:  r.probe.Frames(),
		FacesDetected:    atomic.LoadUint64(&r.facesDetected),
		FramesWithFaces:  atomic.LoadUint64(&r.framesWithFaces),
		ErrorsByCategory: errs,
		Uptime:           uptime,
		State:            RunState(r.state.Load()),
		MetadataMode:     r.probe.Mode().String(),
		FPS:              r.window.Stats().FPSMean,
		EventsDropped:    r.events.Stats().TotalDropped,
	}
}

// SetReportEvery changes the count-mode report interval without restart
func (r *Runner) SetReportEvery(n int) {
	r.probe.SetReportEvery(n)
	slog.Info("face-detection: report interval updated", "report_every", r.probe.ReportEvery())
}

// SetMinConfidence changes the face confidence threshold without restart
func (r *Runner) SetMinConfidence(c float64) {
	r.probe.SetMinConfidence(c)
	slog.Info("face-detection: min confidence updated", "min_confidence", c)
}

// ApplyConfig applies hot-reloadable changes; it is a config.ApplyFunc
func (r *Runner) ApplyConfig(cfg *config.Config, changes []config.Change) {
	for _, c := range changes {
		switch c.Field {
		case "probe.report_every":
			r.SetReportEvery(cfg.Probe.ReportEvery)
		case "probe.min_confidence":
			r.SetMinConfidence(cfg.Probe.MinConfidence)
		}
	}
}
