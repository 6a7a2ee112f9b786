package rag

import (
	"maps"
	"math"
	"slices"
)

// StatusWeight is the share of a claim's confidence that counts towards the
// aggregate score.
func StatusWeight(s VerificationStatus) float64 {
	switch s {
	case StatusSupported:
		return 1.0
	case StatusPartiallySupported:
		return 0.6
	case StatusNotSupported:
		return 0.1
	default:
		return 0.0
	}
}

// AggregateConfidence returns the weighted mean confidence of verified,
// clamped to [0, 100] and rounded to two decimals. Every claim counts in the
// denominator. An empty map scores 0.
func AggregateConfidence(verified map[string]ClaimVerification) float64 {
	if len(verified) == 0 {
		return 0.0
	}

	// Sum in key order so the float result does not depend on map iteration.
	var sum float64
	for _, claim := range slices.Sorted(maps.Keys(verified)) {
		cv := verified[claim]
		sum += clampConfidence(cv.Confidence) * StatusWeight(cv.Status)
	}
	mean := clampConfidence(sum / float64(len(verified)))
	return math.Round(mean*100) / 100
}
