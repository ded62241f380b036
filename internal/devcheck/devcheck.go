// Package devcheck diagnoses the host before a pipeline run: camera nodes,
// GStreamer factories and the DeepStream metadata bindings.
package devcheck

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
)

// DefaultDevices are the V4L2 nodes checked when none are given
var DefaultDevices = []string{"/dev/video0", "/dev/video1", "/dev/video2"}

// DeviceStatus is the result of probing one device node
type DeviceStatus struct {
	Path     string
	Exists   bool
	Openable bool
	// Err describes why the node could not be opened
	Err string
	// Info is set when the node answered VIDIOC_QUERYCAP
	Info *V4L2Info
}

// V4L2Info is what the driver reports for a device node
type V4L2Info struct {
	Driver  string
	Card    string
	BusInfo string
	Capture bool
}

// queryV4L2 is replaced in tests
var queryV4L2 = queryV4L2Device

// PluginStatus tells whether a GStreamer factory is registered
type PluginStatus struct {
	Factory   string
	Available bool
}

// Report is the full environment check
type Report struct {
	Devices  []DeviceStatus
	Plugins  []PluginStatus
	Metadata bool
}

// ProbeDevices checks that each path exists and can be opened for reading.
// The file is closed immediately; the camera is not configured.
func ProbeDevices(paths []string) []DeviceStatus {
	out := make([]DeviceStatus, 0, len(paths))
	for _, p := range paths {
		st := DeviceStatus{Path: p}

		if _, err := os.Stat(p); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				st.Exists = true
				st.Err = err.Error()
			}
			out = append(out, st)
			continue
		}
		st.Exists = true

		f, err := os.Open(p)
		switch {
		case errors.Is(err, fs.ErrPermission):
			st.Err = "permission denied"
		case err != nil:
			st.Err = err.Error()
		default:
			st.Openable = true
			f.Close()
			if info, err := queryV4L2(p); err == nil {
				st.Info = info
			}
		}
		out = append(out, st)
	}
	return out
}

// MissingFunc returns the subset of factories that are not registered
type MissingFunc func(factories []string) []string

// CheckPlugins reports the availability of each factory using missing
func CheckPlugins(factories []string, missing MissingFunc) []PluginStatus {
	absent := make(map[string]bool)
	for _, f := range missing(factories) {
		absent[f] = true
	}

	out := make([]PluginStatus, len(factories))
	for i, f := range factories {
		out[i] = PluginStatus{Factory: f, Available: !absent[f]}
	}
	return out
}

// OK reports whether at least one camera is openable and every plugin is present
func (r Report) OK() bool {
	camera := false
	for _, d := range r.Devices {
		if d.Openable {
			camera = true
			break
		}
	}
	for _, p := range r.Plugins {
		if !p.Available {
			return false
		}
	}
	return camera
}

// WriteTo prints the report as aligned tables
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "DEVICE\tEXISTS\tOPENABLE\tCARD\tERROR")
	for _, d := range r.Devices {
		card := "-"
		if d.Info != nil {
			card = fmt.Sprintf("%s (%s)", d.Info.Card, d.Info.Driver)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Path, mark(d.Exists), mark(d.Openable), card, d.Err)
	}
	fmt.Fprintln(tw, "\t\t\t\t")
	fmt.Fprintln(tw, "FACTORY\tAVAILABLE\t\t\t")
	for _, p := range r.Plugins {
		fmt.Fprintf(tw, "%s\t%s\t\t\t\n", p.Factory, mark(p.Available))
	}
	fmt.Fprintln(tw, "\t\t\t\t")
	fmt.Fprintf(tw, "nvds metadata\t%s\t\t\t\n", mark(r.Metadata))

	if err := tw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}
