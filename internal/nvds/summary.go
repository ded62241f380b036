package nvds

import "fmt"

// Face is a detection that passed the face filter, numbered from 1
type Face struct {
	Index      int
	Rect       Rect
	Confidence float32
}

// FrameReport is the per-frame face summary printed by the probe
type FrameReport struct {
	FrameNum int
	SourceID uint32
	Faces    []Face
	Total    int
}

// Summarize keeps objects of faceClassID with confidence >= minConfidence
func Summarize(frame FrameMeta, faceClassID int, minConfidence float32) FrameReport {
	r := FrameReport{FrameNum: frame.FrameNum, SourceID: frame.SourceID}
	for _, obj := range frame.Objects {
		if obj.ClassID != faceClassID || obj.Confidence < minConfidence {
			continue
		}
		r.Faces = append(r.Faces, Face{
			Index:      len(r.Faces) + 1,
			Rect:       obj.Rect,
			Confidence: obj.Confidence,
		})
	}
	r.Total = len(r.Faces)
	return r
}

// Format renders the report as console lines.
// A frame without faces renders nothing.
func Format(r FrameReport) []string {
	if r.Total == 0 {
		return nil
	}
	lines := make([]string, 0, len(r.Faces)+1)
	for _, f := range r.Faces {
		lines = append(lines, fmt.Sprintf("Frame %d: Face %d - bbox=(%s,%s,%s,%s) confidence=%.2f",
			r.FrameNum, f.Index,
			coord(f.Rect.Left), coord(f.Rect.Top), coord(f.Rect.Width), coord(f.Rect.Height),
			f.Confidence,
		))
	}
	lines = append(lines, fmt.Sprintf("Frame %d: Total faces detected: %d", r.FrameNum, r.Total))
	return lines
}

// coord rounds to whole pixels, half to even
func coord(v float32) string {
	return fmt.Sprintf("%.0f", v)
}
