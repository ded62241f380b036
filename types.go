package facedetection

import "time"

// Face is one detected face in a frame
type Face struct {
	// Index numbers faces within the frame, starting at 1
	Index int `json:"index" msgpack:"index"`
	// Left, Top, Width, Height are the bounding box in mux output pixels
	Left   float32 `json:"left" msgpack:"left"`
	Top    float32 `json:"top" msgpack:"top"`
	Width  float32 `json:"width" msgpack:"width"`
	Height float32 `json:"height" msgpack:"height"`
	// Confidence is the detector score (0-1)
	Confidence float32 `json:"confidence" msgpack:"confidence"`
}

// DetectionEvent is published for every frame with at least one face
type DetectionEvent struct {
	// EventID uniquely identifies the event
	EventID string `json:"event_id" msgpack:"event_id"`
	// RunID identifies the Runner that produced the event
	RunID string `json:"run_id" msgpack:"run_id"`
	// Source identifies the video source (e.g., "video0", "test-pattern")
	Source string `json:"source" msgpack:"source"`
	// FrameNum is the frame number assigned by nvstreammux
	FrameNum int `json:"frame_num" msgpack:"frame_num"`
	// Seq is the buffer arrival count at the probe
	Seq uint64 `json:"seq" msgpack:"seq"`
	// Faces holds the detections that passed the confidence filter
	Faces []Face `json:"faces" msgpack:"faces"`
	// Total is len(Faces)
	Total int `json:"total" msgpack:"total"`
	// Timestamp is when the probe saw the buffer
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// RunState is the lifecycle state of a Runner
type RunState int32

const (
	StateIdle RunState = iota
	StateStarting
	StatePlaying
	StateStopping
	StateStopped
)

// String returns a human-readable string representation of the state
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RunStats contains current pipeline statistics
type RunStats struct {
	// RunID identifies this run
	RunID string
	// FramesProcessed is the number of buffers seen at the overlay sink pad
	FramesProcessed uint64
	// FacesDetected is the total number of faces reported
	FacesDetected uint64
	// FramesWithFaces is the number of frames with at least one face
	FramesWithFaces uint64
	// ErrorsByCategory counts bus errors by classification
	ErrorsByCategory map[string]uint64
	// Uptime is the time since the pipeline reached PLAYING
	Uptime time.Duration
	// State is the lifecycle state
	State RunState
	// MetadataMode is the active probe mode ("metadata" or "count")
	MetadataMode string
	// FPS is the measured buffer rate over the recent window
	FPS float64
	// EventsDropped counts detection events not delivered to Detections()
	EventsDropped uint64
}
