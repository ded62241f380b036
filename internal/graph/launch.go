package graph

import (
	"fmt"
	"strings"
)

// LaunchString renders the graph in gst-launch-1.0 syntax.
//
// The source branch is rendered first and terminated on the mux request pad
// (e.g. "... ! stream-muxer.sink_0"), followed by the main chain starting at
// the mux. Paste the output after `gst-launch-1.0 -e` to reproduce the
// pipeline outside this tool.
func (g *Graph) LaunchString() string {
	next := make(map[string]string, len(g.Links))
	hasPrev := make(map[string]bool, len(g.Links))
	for _, l := range g.Links {
		next[l.From] = l.To
		hasPrev[l.To] = true
	}

	var branches []string
	for _, e := range g.Elements {
		if hasPrev[e.Name] {
			continue
		}

		var parts []string
		for name := e.Name; name != ""; name = next[name] {
			el, ok := g.Element(name)
			if !ok {
				break
			}
			parts = append(parts, renderElement(el))
		}

		branch := strings.Join(parts, " ! ")
		if g.isMuxSourceBranch(e.Name, next) {
			branch += fmt.Sprintf(" ! %s.%s", MuxName, MuxSinkPad)
		}
		branches = append(branches, branch)
	}

	return strings.Join(branches, "  ")
}

func (g *Graph) isMuxSourceBranch(head string, next map[string]string) bool {
	for name := head; name != ""; name = next[name] {
		if name == g.MuxSource {
			return true
		}
	}
	return false
}

func renderElement(e Element) string {
	var b strings.Builder
	b.WriteString(e.Factory)
	b.WriteString(" name=")
	b.WriteString(e.Name)
	for _, p := range e.Props {
		b.WriteByte(' ')
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.String())
	}
	return b.String()
}

// String renders the property value in gst-launch syntax
func (p Prop) String() string {
	switch p.Kind {
	case PropCaps:
		return fmt.Sprintf("%q", p.Value)
	case PropBool:
		if b, ok := p.Value.(bool); ok && b {
			return "true"
		}
		return "false"
	case PropString:
		s := fmt.Sprint(p.Value)
		if strings.ContainsAny(s, " ,;") {
			return fmt.Sprintf("%q", s)
		}
		return s
	default:
		return fmt.Sprint(p.Value)
	}
}
