package nvds

import (
	"errors"
	"reflect"
	"testing"
)

func sampleFrame() FrameMeta {
	return FrameMeta{
		FrameNum:   42,
		NumObjects: 4,
		Objects: []ObjectMeta{
			{ClassID: 0, Confidence: 0.91, Rect: Rect{Left: 100, Top: 50, Width: 80, Height: 96}},
			{ClassID: 2, Confidence: 0.99, Rect: Rect{Left: 1, Top: 1, Width: 1, Height: 1}},
			{ClassID: 0, Confidence: 0.30, Rect: Rect{Left: 300.5, Top: 20, Width: 40, Height: 40}},
			{ClassID: 0, Confidence: 0.75, Rect: Rect{Left: 600, Top: 200, Width: 64, Height: 70}},
		},
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name      string
		classID   int
		minConf   float32
		wantTotal int
		wantConf  []float32
	}{
		{"all faces", 0, 0, 3, []float32{0.91, 0.30, 0.75}},
		{"confidence filter", 0, 0.5, 2, []float32{0.91, 0.75}},
		{"other class", 2, 0, 1, []float32{0.99}},
		{"no match", 7, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Summarize(sampleFrame(), tt.classID, tt.minConf)
			if r.Total != tt.wantTotal {
				t.Fatalf("Total = %d, want %d", r.Total, tt.wantTotal)
			}
			var got []float32
			for i, f := range r.Faces {
				if f.Index != i+1 {
					t.Errorf("face %d has index %d", i, f.Index)
				}
				got = append(got, f.Confidence)
			}
			if !reflect.DeepEqual(got, tt.wantConf) {
				t.Errorf("confidences = %v, want %v", got, tt.wantConf)
			}
			if r.FrameNum != 42 {
				t.Errorf("FrameNum = %d", r.FrameNum)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	r := Summarize(sampleFrame(), 0, 0)
	want := []string{
		"Frame 42: Face 1 - bbox=(100,50,80,96) confidence=0.91",
		"Frame 42: Face 2 - bbox=(300,20,40,40) confidence=0.30",
		"Frame 42: Face 3 - bbox=(600,200,64,70) confidence=0.75",
		"Frame 42: Total faces detected: 3",
	}
	if got := Format(r); !reflect.DeepEqual(got, want) {
		t.Errorf("Format() =\n%v\nwant\n%v", got, want)
	}
}

func TestFormat_RoundsCoordinates(t *testing.T) {
	tests := []struct {
		rect Rect
		want string
	}{
		{Rect{Left: 10.6, Top: 20.4, Width: 30.5, Height: 40}, "bbox=(11,20,30,40)"},
		{Rect{Left: 0.4, Top: 1.5, Width: 2.5, Height: 99.99}, "bbox=(0,2,2,100)"},
		{Rect{Left: 1279.7, Top: 719.2, Width: 64.25, Height: 80.75}, "bbox=(1280,719,64,81)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			lines := Format(FrameReport{
				FrameNum: 7,
				Faces:    []Face{{Index: 1, Rect: tt.rect, Confidence: 0.5}},
				Total:    1,
			})
			want := "Frame 7: Face 1 - " + tt.want + " confidence=0.50"
			if len(lines) != 2 || lines[0] != want {
				t.Errorf("Format() = %v, want first line %q", lines, want)
			}
		})
	}
}

func TestFormat_NoFaces(t *testing.T) {
	if got := Format(FrameReport{FrameNum: 3}); got != nil {
		t.Errorf("expected no lines, got %v", got)
	}
}

func TestReadBatch_NilBuffer(t *testing.T) {
	_, err := ReadBatch(nil)
	if err == nil {
		t.Fatal("expected error for nil buffer")
	}
	if Available() {
		if !errors.Is(err, ErrNoBatchMeta) {
			t.Errorf("got %v, want ErrNoBatchMeta", err)
		}
	} else if !errors.Is(err, ErrMetadataUnavailable) {
		t.Errorf("got %v, want ErrMetadataUnavailable", err)
	}
}
