package deepstream

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/prashanthag/deepstream-face-detection/internal/graph"
)

// PipelineElements holds references to the GStreamer objects created from a graph.
// These references are needed for probe attachment and cleanup.
type PipelineElements struct {
	Pipeline *gst.Pipeline
	Elements map[string]*gst.Element
	Overlay  *gst.Element // owner of the probed sink pad (graph.ProbeElement)
	Mux      *gst.Element
}

// CreatePipeline creates and configures a GStreamer pipeline from g.
//
// Steps:
//  1. Create every element (fails fast with *ElementError naming the factory)
//  2. Set properties (caps strings become gst.Caps)
//  3. Add all elements to the pipeline
//  4. Link static pads, then the mux request pad sink_0 when g has a muxer
//
// The pipeline is configured but NOT started (state remains NULL).
// Caller must call pipeline.SetState(gst.StatePlaying) to start.
func CreatePipeline(g *graph.Graph) (*PipelineElements, error) {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline(g.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	elements := make(map[string]*gst.Element, len(g.Elements))
	ordered := make([]*gst.Element, 0, len(g.Elements))

	for _, el := range g.Elements {
		elem, err := gst.NewElementWithName(el.Factory, el.Name)
		if err != nil {
			return nil, &ElementError{Factory: el.Factory, Name: el.Name, Err: err}
		}

		for _, p := range el.Props {
			if err := setProperty(elem, p); err != nil {
				return nil, fmt.Errorf("failed to set %s.%s=%s: %w", el.Name, p.Key, p.String(), err)
			}
		}

		elements[el.Name] = elem
		ordered = append(ordered, elem)
	}

	if err := pipeline.AddMany(ordered...); err != nil {
		return nil, fmt.Errorf("failed to add elements to pipeline: %w", err)
	}

	for _, l := range g.Links {
		if err := elements[l.From].Link(elements[l.To]); err != nil {
			return nil, fmt.Errorf("failed to link %s → %s: %w", l.From, l.To, err)
		}
	}

	mux := elements[graph.MuxName]
	links := len(g.Links)
	if g.MuxSource != "" {
		if err := linkMuxRequestPad(elements[g.MuxSource], mux); err != nil {
			return nil, err
		}
		links++
	}

	slog.Info("face-detection: pipeline created",
		"name", g.Name,
		"elements", len(ordered),
		"links", links,
	)

	return &PipelineElements{
		Pipeline: pipeline,
		Elements: elements,
		Overlay:  elements[g.ProbeElement],
		Mux:      mux,
	}, nil
}

// linkMuxRequestPad links src's static src pad to the mux request pad sink_0.
// nvstreammux only exposes request pads, so Element.Link cannot be used.
func linkMuxRequestPad(src, mux *gst.Element) error {
	sinkPad := mux.GetRequestPad(graph.MuxSinkPad)
	if sinkPad == nil {
		return fmt.Errorf("unable to get the sink pad of streammux (%s)", graph.MuxSinkPad)
	}

	srcPad := src.GetStaticPad("src")
	if srcPad == nil {
		return fmt.Errorf("unable to get source pad of %s", src.GetName())
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		return fmt.Errorf("failed to link %s:src → %s:%s (%v)",
			src.GetName(), mux.GetName(), graph.MuxSinkPad, ret)
	}

	slog.Debug("face-detection: mux request pad linked",
		"src", src.GetName(),
		"sink_pad", graph.MuxSinkPad,
	)
	return nil
}

func setProperty(elem *gst.Element, p graph.Prop) error {
	switch p.Kind {
	case graph.PropCaps:
		caps := gst.NewCapsFromString(fmt.Sprint(p.Value))
		if caps == nil {
			return fmt.Errorf("invalid caps %q", p.Value)
		}
		return elem.SetProperty(p.Key, caps)
	default:
		return elem.SetProperty(p.Key, p.Value)
	}
}

// DestroyPipeline cleans up GStreamer pipeline resources
//
// Sets pipeline state to NULL and releases all resources.
// Safe to call even if pipeline is already destroyed.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}

	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}

	return nil
}

// CheckFactories returns the factories that cannot be found in the registry
func CheckFactories(names []string) []string {
	gst.Init(nil)

	var missing []string
	for _, name := range names {
		if gst.Find(name) == nil {
			missing = append(missing, name)
		}
	}
	return missing
}
