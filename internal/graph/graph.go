// Package graph describes the DeepStream element chain as plain data.
//
// A Graph is built from a config.Config without touching GStreamer, so the
// topology (factories, element names, properties, links) can be inspected,
// rendered as a gst-launch line and tested on machines without DeepStream.
// internal/deepstream turns a Graph into a live pipeline.
package graph

import (
	"fmt"

	"github.com/prashanthag/deepstream-face-detection/internal/config"
)

// Element names referenced by the runtime
const (
	SourceName  = "camera-source"
	MuxName     = "stream-muxer"
	InferName   = "primary-inference"
	OverlayName = "onscreendisplay"
	SinkName    = "sink"
)

// MuxSinkPad is the nvstreammux request pad used for the single source
const MuxSinkPad = "sink_0"

// PropKind tells the runtime how to convert a property value
type PropKind int

const (
	PropString PropKind = iota
	PropInt
	PropBool
	PropCaps // value is a caps string, converted with gst.NewCapsFromString
)

// Prop is a single element property assignment
type Prop struct {
	Key   string
	Kind  PropKind
	Value interface{}
}

// Element is a factory instantiation with its properties
type Element struct {
	Name    string
	Factory string
	Props   []Prop
}

// Link connects two elements by name using their always pads
type Link struct {
	From string
	To   string
}

// Graph is the full pipeline description
type Graph struct {
	Name     string
	Elements []Element
	Links    []Link

	// MuxSource is the element whose src pad feeds nvstreammux sink_0.
	// Empty for graphs without a muxer.
	MuxSource string
	// ProbeElement owns the sink pad the detection probe is attached to
	ProbeElement string
}

// Build produces the element chain for cfg.
//
// Topology:
//
//	source branch → nvstreammux(sink_0) → nvinfer → nvvideoconvert → nvdsosd → sink branch
//
// cfg must already be validated.
func Build(cfg *config.Config) (*Graph, error) {
	g := &Graph{
		Name:         cfg.Name,
		ProbeElement: OverlayName,
	}

	var srcChain []string
	switch cfg.Source.Kind {
	case config.SourceCamera:
		srcChain = g.cameraSource(cfg.Source)
	case config.SourceTest:
		srcChain = g.testSource(cfg.Source)
	default:
		return nil, fmt.Errorf("graph: unsupported source kind '%s'", cfg.Source.Kind)
	}
	g.chain(srcChain...)
	g.MuxSource = srcChain[len(srcChain)-1]

	g.add(MuxName, "nvstreammux",
		intProp("width", cfg.Mux.Width),
		intProp("height", cfg.Mux.Height),
		intProp("batch-size", cfg.Mux.BatchSize),
		intProp("batched-push-timeout", cfg.Mux.BatchedPushTimeoutUS),
	)
	g.add(InferName, "nvinfer",
		Prop{Key: "config-file-path", Kind: PropString, Value: cfg.Inference.ConfigFilePath},
	)
	g.add("convertor", "nvvideoconvert")
	g.add(OverlayName, "nvdsosd")

	var sinkChain []string
	switch cfg.Sink.Kind {
	case config.SinkFake:
		sinkChain = g.fakeSink(cfg.Sink)
	case config.SinkDisplay:
		sinkChain = g.displaySink(cfg.Sink)
	case config.SinkUDP:
		sinkChain = g.udpSink(cfg.Sink)
	default:
		return nil, fmt.Errorf("graph: unsupported sink kind '%s'", cfg.Sink.Kind)
	}

	g.chain(append([]string{MuxName, InferName, "convertor", OverlayName}, sinkChain...)...)

	return g, nil
}

// CameraTestOptions configures the camera-only check pipeline
type CameraTestOptions struct {
	Device    string
	Width     int
	Height    int
	Framerate string
	Display   bool // xvimagesink instead of fakesink
	Dump      bool // fakesink hexdumps every buffer
}

// CameraTest builds a pipeline without DeepStream elements:
//
//	v4l2src → capsfilter → videoconvert → videoscale → fakesink|xvimagesink
//
// It verifies that the camera delivers frames before nvinfer is involved.
// The sink pad of the sink element is the probe point, for frame counting.
func CameraTest(o CameraTestOptions) *Graph {
	g := &Graph{Name: "camera-test", ProbeElement: SinkName}

	g.add(SourceName, "v4l2src", Prop{Key: "device", Kind: PropString, Value: o.Device})
	g.add("caps", "capsfilter", capsProp(fmt.Sprintf("video/x-raw, width=%d, height=%d, framerate=%s",
		o.Width, o.Height, o.Framerate)))
	g.add("convert", "videoconvert")
	g.add("scale", "videoscale")
	if o.Display {
		g.add(SinkName, "xvimagesink", boolProp("sync", nil, false))
	} else {
		g.add(SinkName, "fakesink", boolProp("sync", nil, false), boolProp("dump", &o.Dump, false))
	}

	g.chain(SourceName, "caps", "convert", "scale", SinkName)
	return g
}

// camera: v4l2src → capsfilter → videoconvert → nvvideoconvert → capsfilter(NVMM)
func (g *Graph) cameraSource(src config.SourceConfig) []string {
	caps := "video/x-raw, framerate=" + src.Framerate
	if src.Width > 0 && src.Height > 0 {
		caps = fmt.Sprintf("video/x-raw, width=%d, height=%d, framerate=%s", src.Width, src.Height, src.Framerate)
	}

	g.add(SourceName, "v4l2src", Prop{Key: "device", Kind: PropString, Value: src.Device})
	g.add("v4l2src_caps", "capsfilter", capsProp(caps))
	g.add("convertor_src1", "videoconvert")
	g.add("convertor_src2", "nvvideoconvert")
	g.add("nvmm_caps", "capsfilter", capsProp("video/x-raw(memory:NVMM)"))

	return []string{SourceName, "v4l2src_caps", "convertor_src1", "convertor_src2", "nvmm_caps"}
}

// test: videotestsrc → capsfilter → nvvideoconvert → capsfilter(NVMM)
func (g *Graph) testSource(src config.SourceConfig) []string {
	caps := fmt.Sprintf("video/x-raw, width=%d, height=%d, framerate=%s", src.Width, src.Height, src.Framerate)

	g.add(SourceName, "videotestsrc", intProp("pattern", src.Pattern))
	g.add("source_caps", "capsfilter", capsProp(caps))
	g.add("convertor_src", "nvvideoconvert")
	g.add("nvmm_caps", "capsfilter", capsProp("video/x-raw(memory:NVMM)"))

	return []string{SourceName, "source_caps", "convertor_src", "nvmm_caps"}
}

func (g *Graph) fakeSink(sink config.SinkConfig) []string {
	g.add(SinkName, "fakesink", boolProp("sync", sink.Sync, false))
	return []string{SinkName}
}

// display: nvvideoconvert → capsfilter(RGBA) → videoconvert → xvimagesink
func (g *Graph) displaySink(sink config.SinkConfig) []string {
	g.add("convertor_postosd", "nvvideoconvert")
	g.add("display_caps", "capsfilter", capsProp("video/x-raw, format=RGBA"))
	g.add("convertor_display", "videoconvert")

	props := []Prop{boolProp("sync", sink.Sync, false)}
	if sink.Async != nil {
		props = append(props, boolProp("async", sink.Async, false))
	}
	g.add(SinkName, "xvimagesink", props...)

	return []string{"convertor_postosd", "display_caps", "convertor_display", SinkName}
}

// udp: nvvideoconvert → capsfilter(NVMM I420) → nvv4l2h264enc → rtph264pay → udpsink
func (g *Graph) udpSink(sink config.SinkConfig) []string {
	g.add("convertor_postosd", "nvvideoconvert")
	g.add("encoder_caps", "capsfilter", capsProp("video/x-raw(memory:NVMM), format=I420"))
	g.add("encoder", "nvv4l2h264enc")
	g.add("rtppay", "rtph264pay")
	g.add(SinkName, "udpsink",
		Prop{Key: "host", Kind: PropString, Value: sink.Host},
		intProp("port", sink.Port),
		boolProp("async", sink.Async, false),
		boolProp("sync", sink.Sync, true),
	)

	return []string{"convertor_postosd", "encoder_caps", "encoder", "rtppay", SinkName}
}

// Element returns the element with the given name
func (g *Graph) Element(name string) (Element, bool) {
	for _, e := range g.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}

// Factories returns the distinct factory names in pipeline order
func (g *Graph) Factories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.Elements {
		if !seen[e.Factory] {
			seen[e.Factory] = true
			out = append(out, e.Factory)
		}
	}
	return out
}

func (g *Graph) add(name, factory string, props ...Prop) {
	g.Elements = append(g.Elements, Element{Name: name, Factory: factory, Props: props})
}

func (g *Graph) chain(names ...string) {
	for i := 1; i < len(names); i++ {
		g.Links = append(g.Links, Link{From: names[i-1], To: names[i]})
	}
}

func intProp(key string, v int) Prop {
	return Prop{Key: key, Kind: PropInt, Value: v}
}

func capsProp(caps string) Prop {
	return Prop{Key: "caps", Kind: PropCaps, Value: caps}
}

func boolProp(key string, v *bool, def bool) Prop {
	b := def
	if v != nil {
		b = *v
	}
	return Prop{Key: key, Kind: PropBool, Value: b}
}
