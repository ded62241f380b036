package deepstream

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/tinyzimmer/go-gst/gst"
)

// BufferFunc is called for every buffer reaching the probed pad.
// buffer is the underlying *GstBuffer, suitable for nvds.ReadBatch.
type BufferFunc func(buffer unsafe.Pointer)

// AttachProbe installs a buffer probe on the sink pad of the graph's probe
// element. In detection graphs that is the overlay, which sees every batch
// after inference. fn runs on the streaming thread and must not block.
func AttachProbe(elements *PipelineElements, fn BufferFunc) error {
	if elements == nil || elements.Overlay == nil {
		return fmt.Errorf("probe element not available")
	}

	sinkPad := elements.Overlay.GetStaticPad("sink")
	if sinkPad == nil {
		return fmt.Errorf("unable to get sink pad of %s", elements.Overlay.GetName())
	}

	sinkPad.AddProbe(gst.PadProbeTypeBuffer, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		buffer := info.GetBuffer()
		if buffer == nil {
			return gst.PadProbeOK
		}
		fn(unsafe.Pointer(buffer.Instance()))
		return gst.PadProbeOK
	})

	slog.Debug("face-detection: buffer probe installed", "element", elements.Overlay.GetName(), "pad", "sink")
	return nil
}
