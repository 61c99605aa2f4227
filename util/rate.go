package util

import "time"

// Rate computes the per-second rate between two cumulative counter values.
// Counter decreases (wrap or pid reuse) and non-positive intervals yield 0,
// never a negative rate.
func Rate(prev, curr uint64, dt time.Duration) float64 {
	if dt <= 0 || curr < prev {
		return 0
	}
	return float64(curr-prev) / dt.Seconds()
}

// Delta returns curr - prev, or 0 if curr < prev (counter wrap).
func Delta(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}
