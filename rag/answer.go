package rag

import (
	"fmt"
	"slices"
)

// ClaimBreakdown counts claims per verification status.
type ClaimBreakdown struct {
	Supported          int `json:"supported"`
	PartiallySupported int `json:"partially_supported"`
	NotSupported       int `json:"not_supported"`
	Contradicted       int `json:"contradicted"`
}

// Tally counts the statuses of verified.
func Tally(verified map[string]ClaimVerification) ClaimBreakdown {
	var b ClaimBreakdown
	for _, cv := range verified {
		switch cv.Status {
		case StatusSupported:
			b.Supported++
		case StatusPartiallySupported:
			b.PartiallySupported++
		case StatusContradicted:
			b.Contradicted++
		default:
			b.NotSupported++
		}
	}
	return b
}

// Total returns the number of claims counted.
func (b ClaimBreakdown) Total() int {
	return b.Supported + b.PartiallySupported + b.NotSupported + b.Contradicted
}

// Summary renders the breakdown as the limitations sentence attached to a
// final answer.
func (b ClaimBreakdown) Summary() string {
	return fmt.Sprintf("Based on verification: %d supported, %d not supported claims", b.Supported, b.NotSupported)
}

// FinalAnswer is the terminal output of a research run.
type FinalAnswer struct {
	Answer          string         `json:"final_answer"`
	ConfidenceScore float64        `json:"confidence_score"`
	VerifiedSources []string       `json:"verified_sources"`
	Limitations     string         `json:"limitations"`
	ClaimBreakdown  ClaimBreakdown `json:"claim_breakdown"`
}

// ErrorAnswer builds the error-shaped answer: zero confidence and no sources.
func ErrorAnswer(answer, limitations string) FinalAnswer {
	return FinalAnswer{
		Answer:          answer,
		ConfidenceScore: 0,
		VerifiedSources: []string{},
		Limitations:     limitations,
	}
}

// SourceSet returns the sorted, deduplicated citation labels of docs, as
// produced by SourceOr for each document's position.
func SourceSet(docs []Document) []string {
	sources := make([]string, 0, len(docs))
	for i, d := range docs {
		sources = append(sources, d.SourceOr(i))
	}
	slices.Sort(sources)
	return slices.Compact(sources)
}
