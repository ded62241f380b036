// Package probe turns buffers seen at the overlay sink pad into reports.
//
// Two modes exist: count (frame arrivals, a line every N buffers) and
// metadata (per-face lines from NvDsBatchMeta). Auto starts with metadata
// and drops to count for good the first time metadata cannot be read.
package probe

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/prashanthag/deepstream-face-detection/internal/config"
	"github.com/prashanthag/deepstream-face-detection/internal/nvds"
)

// Mode is the active extraction mode
type Mode int32

const (
	ModeCount Mode = iota
	ModeMetadata
)

func (m Mode) String() string {
	if m == ModeMetadata {
		return "metadata"
	}
	return "count"
}

// Report is produced for every buffer that has something to say
type Report struct {
	// Seq is the buffer arrival count at the probe
	Seq uint64
	// Mode that produced the report
	Mode Mode
	// Frames holds per-frame face summaries (metadata mode only)
	Frames []nvds.FrameReport
	// Lines are the console lines for this buffer
	Lines []string
}

// ReportFunc receives reports on the streaming thread and must not block
type ReportFunc func(Report)

// BatchReader reads batch metadata from a buffer
type BatchReader func(buffer unsafe.Pointer) (nvds.Batch, error)

// Probe holds the per-run extraction state
type Probe struct {
	counter     *Counter
	mode        int32
	auto        bool
	faceClassID int
	minConf     uint32 // math.Float32bits
	read        BatchReader
	report      ReportFunc

	metaErrors uint64
}

// New creates a probe from the probe config section.
// read may be nil, in which case nvds.ReadBatch is used.
func New(cfg config.ProbeConfig, read BatchReader, report ReportFunc) (*Probe, error) {
	p := &Probe{
		counter:     NewCounter(cfg.ReportEvery),
		faceClassID: cfg.FaceClassID,
		read:        read,
		report:      report,
	}
	if p.read == nil {
		p.read = nvds.ReadBatch
	}
	p.SetMinConfidence(cfg.MinConfidence)

	switch cfg.Mode {
	case config.ProbeCount:
		p.mode = int32(ModeCount)
	case config.ProbeMetadata:
		p.mode = int32(ModeMetadata)
	case config.ProbeAuto, "":
		p.mode = int32(ModeMetadata)
		p.auto = true
	default:
		return nil, fmt.Errorf("probe: unknown mode '%s'", cfg.Mode)
	}
	return p, nil
}

// Handle processes one buffer. It is the deepstream.BufferFunc for the run.
func (p *Probe) Handle(buffer unsafe.Pointer) {
	seq, boundary := p.counter.Tick()

	if p.Mode() == ModeMetadata {
		if p.handleMetadata(seq, buffer) {
			return
		}
	}

	if boundary {
		p.emit(Report{
			Seq:   seq,
			Mode:  ModeCount,
			Lines: []string{fmt.Sprintf("Processing frame %d", seq)},
		})
	}
}

// handleMetadata returns false when the buffer should be handled by counting
func (p *Probe) handleMetadata(seq uint64, buffer unsafe.Pointer) bool {
	batch, err := p.read(buffer)
	if err != nil {
		n := atomic.AddUint64(&p.metaErrors, 1)
		if p.auto && errors.Is(err, nvds.ErrMetadataUnavailable) {
			atomic.StoreInt32(&p.mode, int32(ModeCount))
			slog.Warn("face-detection: batch metadata unavailable, falling back to frame counting")
			return false
		}
		if n == 1 {
			slog.Error("face-detection: unable to read batch metadata", "error", err, "frame", seq)
		}
		return false
	}

	minConf := p.MinConfidence()
	rep := Report{Seq: seq, Mode: ModeMetadata}
	for _, frame := range batch.Frames {
		fr := nvds.Summarize(frame, p.faceClassID, minConf)
		rep.Frames = append(rep.Frames, fr)
		rep.Lines = append(rep.Lines, nvds.Format(fr)...)
	}
	p.emit(rep)
	return true
}

func (p *Probe) emit(r Report) {
	if p.report != nil {
		p.report(r)
	}
}

// Mode returns the active mode
func (p *Probe) Mode() Mode {
	return Mode(atomic.LoadInt32(&p.mode))
}

// Frames returns the number of buffers seen
func (p *Probe) Frames() uint64 {
	return p.counter.Count()
}

// MetadataErrors returns the number of failed metadata reads
func (p *Probe) MetadataErrors() uint64 {
	return atomic.LoadUint64(&p.metaErrors)
}

// SetReportEvery changes the count-mode report interval
func (p *Probe) SetReportEvery(n int) {
	p.counter.SetReportEvery(n)
}

// SetMinConfidence changes the face confidence threshold
func (p *Probe) SetMinConfidence(c float64) {
	atomic.StoreUint32(&p.minConf, math.Float32bits(float32(c)))
}

// MinConfidence returns the face confidence threshold
func (p *Probe) MinConfidence() float32 {
	return math.Float32frombits(atomic.LoadUint32(&p.minConf))
}

// ReportEvery returns the count-mode report interval
func (p *Probe) ReportEvery() int {
	return p.counter.ReportEvery()
}
