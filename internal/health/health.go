// Package health serves liveness, readiness and plain-text metrics over HTTP.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	facedetection "github.com/prashanthag/deepstream-face-detection"
)

// StatsProvider is implemented by *facedetection.Runner
type StatsProvider interface {
	Stats() facedetection.RunStats
}

// Status is the readiness payload
type Status struct {
	Status          string            `json:"status"` // "ready", "degraded", "not_ready"
	State           string            `json:"state"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	FramesProcessed uint64            `json:"frames_processed"`
	FacesDetected   uint64            `json:"faces_detected"`
	ProbeMode       string            `json:"probe_mode"`
	FPS             float64           `json:"fps"`
	MQTTConnected   *bool             `json:"mqtt_connected,omitempty"`
	Errors          map[string]uint64 `json:"errors,omitempty"`
}

// Server exposes /health, /readiness and /metrics
type Server struct {
	stats   StatsProvider
	started time.Time
	srv     *http.Server

	// MQTTConnected, when set, marks readiness degraded while the broker is down
	MQTTConnected func() bool
}

// NewServer creates a server bound to addr (e.g. ":8080")
func NewServer(addr string, stats StatsProvider) *Server {
	s := &Server{stats: stats, started: time.Now()}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the endpoint mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.LivenessHandler)
	mux.HandleFunc("/readiness", s.ReadinessHandler)
	mux.HandleFunc("/metrics", s.MetricsHandler)
	return mux
}

// Start listens and serves in a goroutine. The listen error is returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("health server listen on %s: %w", s.srv.Addr, err)
	}

	slog.Info("face-detection: starting health check server",
		"addr", ln.Addr().String(),
		"endpoints", []string{"/health", "/readiness", "/metrics"},
	)

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("face-detection: health check server failed", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// LivenessHandler returns 200 while the process is alive
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

// Check computes the readiness status from the runner stats
func (s *Server) Check() Status {
	st := s.stats.Stats()

	status := Status{
		Status:          "ready",
		State:           st.State.String(),
		UptimeSeconds:   int64(st.Uptime.Seconds()),
		FramesProcessed: st.FramesProcessed,
		FacesDetected:   st.FacesDetected,
		ProbeMode:       st.MetadataMode,
		FPS:             st.FPS,
		Errors:          st.ErrorsByCategory,
	}

	if s.MQTTConnected != nil {
		connected := s.MQTTConnected()
		status.MQTTConnected = &connected
		if !connected {
			status.Status = "degraded"
		}
	}

	if st.State != facedetection.StatePlaying {
		status.Status = "not_ready"
	}
	return status
}

// ReadinessHandler returns 200 once the pipeline is PLAYING and 503 before
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := s.Check()
	code := http.StatusOK
	if status.Status == "not_ready" {
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// MetricsHandler writes counters in Prometheus text format
func (s *Server) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)

	st := s.stats.Stats()
	playing := 0
	if st.State == facedetection.StatePlaying {
		playing = 1
	}

	fmt.Fprintf(w, "face_detection_frames_processed_total %d\n", st.FramesProcessed)
	fmt.Fprintf(w, "face_detection_faces_detected_total %d\n", st.FacesDetected)
	fmt.Fprintf(w, "face_detection_frames_with_faces_total %d\n", st.FramesWithFaces)
	fmt.Fprintf(w, "face_detection_events_dropped_total %d\n", st.EventsDropped)
	fmt.Fprintf(w, "face_detection_fps %.2f\n", st.FPS)
	fmt.Fprintf(w, "face_detection_uptime_seconds %.0f\n", st.Uptime.Seconds())
	fmt.Fprintf(w, "face_detection_playing %d\n", playing)

	categories := make([]string, 0, len(st.ErrorsByCategory))
	for c := range st.ErrorsByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(w, "face_detection_pipeline_errors_total{category=%q} %d\n", c, st.ErrorsByCategory[c])
	}
}
