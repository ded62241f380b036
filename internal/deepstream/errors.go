package deepstream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrEndOfStream is returned by MonitorBus when the pipeline posts EOS
var ErrEndOfStream = errors.New("face-detection: end of stream")

// ElementError reports a native element that could not be created,
// usually because its plugin (DeepStream, v4l2, x11) is not installed.
type ElementError struct {
	Factory string
	Name    string
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("unable to create element %s (factory %s): %v", e.Name, e.Factory, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// PipelineError is an ERROR message posted on the pipeline bus
type PipelineError struct {
	Category ErrorCategory
	Source   string
	Message  string
	Debug    string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error [%s] from %s: %s", e.Category, e.Source, e.Message)
}

// ErrorCategory represents the classification of GStreamer errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryDevice indicates camera/device failures (missing node, busy, permissions)
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryInference indicates nvinfer failures (config file, model, engine build)
	ErrCategoryInference
	// ErrCategoryNegotiation indicates caps/format negotiation failures
	ErrCategoryNegotiation
	// ErrCategoryResource indicates GPU/memory/buffer pool failures
	ErrCategoryResource
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryInference:
		return "inference"
	case ErrCategoryNegotiation:
		return "negotiation"
	case ErrCategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Categories lists every category in counter order
var Categories = []ErrorCategory{
	ErrCategoryDevice,
	ErrCategoryInference,
	ErrCategoryNegotiation,
	ErrCategoryResource,
	ErrCategoryUnknown,
}

// ClassifyGStreamerError analyzes a GStreamer error and categorizes it for telemetry
//
// Note: go-gst's GError does not expose Domain(), so we rely on string matching.
func ClassifyGStreamerError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return ClassifyMessage(gerr.Error(), gerr.DebugString())
}

// ClassifyMessage categorizes an error from its message and debug string.
//
// Priority order (most specific first): inference, device, resource, negotiation.
// nvinfer errors often mention caps or memory as a consequence, so they are
// checked before the generic categories.
func ClassifyMessage(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	switch {
	case containsAny(combined, inferenceKeywords):
		return ErrCategoryInference
	case containsAny(combined, deviceKeywords):
		return ErrCategoryDevice
	case containsAny(combined, resourceKeywords):
		return ErrCategoryResource
	case containsAny(combined, negotiationKeywords):
		return ErrCategoryNegotiation
	default:
		return ErrCategoryUnknown
	}
}

var (
	inferenceKeywords = []string{
		"nvinfer",
		"config-file-path",
		"config file",
		"model",
		"engine",
		"tensorrt",
		"onnx",
		"gie",
	}

	deviceKeywords = []string{
		"v4l2",
		"/dev/video",
		"device",
		"busy",
		"permission denied",
		"cannot identify",
		"could not open",
	}

	resourceKeywords = []string{
		"cuda",
		"out of memory",
		"nvbuf",
		"buffer pool",
		"allocate",
		"surface",
	}

	negotiationKeywords = []string{
		"not-negotiated",
		"not negotiated",
		"negotiation",
		"caps",
		"format",
		"streaming stopped",
	}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
