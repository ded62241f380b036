// Package warmup measures buffer arrival rate and stability at the probe.
package warmup

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold: stable if FPS stddev < 15% of mean FPS
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold: stable if mean jitter < 20% of the expected interval
	jitterStabilityThreshold = 0.20
)

// FPSStats summarizes a series of buffer arrival times
type FPSStats struct {
	Frames   int
	Duration time.Duration

	FPSMean   float64
	FPSStdDev float64
	FPSMin    float64
	FPSMax    float64

	// Jitter is |actual interval - expected interval| in seconds
	JitterMean   float64
	JitterStdDev float64
	JitterMax    float64

	// IsStable is true when stddev < 15% of mean AND jitter < 20% of interval
	IsStable bool
}

// CalculateFPSStats calculates FPS statistics from arrival timestamps.
//
// The mean is frames/duration. Instantaneous FPS comes from each positive
// interval; jitter is measured against 1/mean.
func CalculateFPSStats(times []time.Time, duration time.Duration) *FPSStats {
	n := len(times)
	st := &FPSStats{Frames: n, Duration: duration}
	if n == 0 || duration <= 0 {
		return st
	}

	st.FPSMean = float64(n) / duration.Seconds()

	intervals := make([]float64, 0, n-1)
	instant := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		iv := times[i].Sub(times[i-1]).Seconds()
		intervals = append(intervals, iv)
		if iv > 0 {
			instant = append(instant, 1.0/iv)
		}
	}
	if len(instant) == 0 {
		return st
	}

	st.FPSMin, st.FPSMax = instant[0], instant[0]
	for _, fps := range instant {
		st.FPSMin = math.Min(st.FPSMin, fps)
		st.FPSMax = math.Max(st.FPSMax, fps)
	}
	st.FPSStdDev = stddev(instant, st.FPSMean)

	expected := 1.0 / st.FPSMean
	jitters := make([]float64, len(intervals))
	var sum float64
	for i, iv := range intervals {
		jitters[i] = math.Abs(iv - expected)
		sum += jitters[i]
		st.JitterMax = math.Max(st.JitterMax, jitters[i])
	}
	st.JitterMean = sum / float64(len(jitters))
	st.JitterStdDev = stddev(jitters, st.JitterMean)

	st.IsStable = st.FPSStdDev < st.FPSMean*fpsStabilityThreshold &&
		st.JitterMean < expected*jitterStabilityThreshold

	return st
}

// stddev is the population standard deviation of xs around mean
func stddev(xs []float64, mean float64) float64 {
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
