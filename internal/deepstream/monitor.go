package deepstream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// BusHandler receives bus events of interest to the caller.
// Nil fields are ignored.
type BusHandler struct {
	// OnError is called once per ERROR message after classification
	OnError func(category ErrorCategory)
	// OnPlaying is called when the pipeline itself reaches PLAYING
	OnPlaying func()
}

// MonitorBus monitors the GStreamer pipeline bus for messages
//
// This function:
//  1. Polls pipeline bus for messages (EOS, Error, StateChanged)
//  2. Classifies errors and reports them through handler.OnError
//  3. Notifies handler.OnPlaying on the PLAYING transition
//
// Returns ErrEndOfStream on EOS and a *PipelineError on ERROR.
// Returns nil if context is cancelled (graceful shutdown).
func MonitorBus(ctx context.Context, pipeline *gst.Pipeline, handler BusHandler) error {
	if pipeline == nil {
		return fmt.Errorf("pipeline not initialized")
	}

	bus := pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("face-detection: context cancelled, stopping bus monitor")
			return nil

		default:
			// Short timeout keeps shutdown responsive
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Info("face-detection: end of stream received")
				return ErrEndOfStream

			case gst.MessageError:
				gerr := msg.ParseError()
				category := ClassifyGStreamerError(gerr)

				if handler.OnError != nil {
					handler.OnError(category)
				}

				perr := &PipelineError{Category: category, Source: msg.Source()}
				if gerr != nil {
					perr.Message = gerr.Error()
					perr.Debug = gerr.DebugString()
				}

				slog.Error("face-detection: pipeline error",
					"error", perr.Message,
					"debug", perr.Debug,
					"source", perr.Source,
					"category", category.String(),
				)
				return perr

			case gst.MessageStateChanged:
				if msg.Source() != pipeline.GetName() {
					continue
				}
				old, new := msg.ParseStateChanged()
				slog.Debug("face-detection: pipeline state changed",
					"from", old,
					"to", new,
				)
				if new == gst.StatePlaying && handler.OnPlaying != nil {
					handler.OnPlaying()
				}
			}
		}
	}
}
