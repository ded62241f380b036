// Package nvds reads DeepStream object metadata from batched buffers.
//
// The cgo reader is only compiled with the deepstream build tag, which needs
// the DeepStream SDK headers and libnvds_meta. Default builds return
// ErrMetadataUnavailable so callers can fall back to counting frames.
package nvds

import "errors"

// ErrMetadataUnavailable is returned when the metadata bindings are not compiled in
var ErrMetadataUnavailable = errors.New("nvds: batch metadata unavailable")

// ErrNoBatchMeta is returned when a buffer carries no NvDsBatchMeta
var ErrNoBatchMeta = errors.New("nvds: buffer has no batch meta")

// Rect is an object bounding box in mux output pixels
type Rect struct {
	Left   float32
	Top    float32
	Width  float32
	Height float32
}

// ObjectMeta is one detected object
type ObjectMeta struct {
	ClassID    int
	ObjectID   uint64
	Confidence float32
	Label      string
	Rect       Rect
}

// FrameMeta holds the objects detected in one frame of the batch
type FrameMeta struct {
	FrameNum   int
	SourceID   uint32
	BatchID    uint32
	NumObjects int
	Objects    []ObjectMeta
}

// Batch is the decoded NvDsBatchMeta of one buffer
type Batch struct {
	Frames []FrameMeta
}
