package rag

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VerificationStatus is the outcome of checking one claim against the
// context documents.
type VerificationStatus string

const (
	StatusSupported          VerificationStatus = "SUPPORTED"
	StatusPartiallySupported VerificationStatus = "PARTIALLY_SUPPORTED"
	StatusNotSupported       VerificationStatus = "NOT_SUPPORTED"
	StatusContradicted       VerificationStatus = "CONTRADICTED"
)

// Statuses lists every verification status in report order.
var Statuses = []VerificationStatus{
	StatusSupported,
	StatusPartiallySupported,
	StatusNotSupported,
	StatusContradicted,
}

// Valid reports whether s is one of the four known statuses.
func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusSupported, StatusPartiallySupported, StatusNotSupported, StatusContradicted:
		return true
	}
	return false
}

// ParseVerificationStatus normalizes a model-provided status. Unknown values
// map to StatusNotSupported with ok set to false.
func ParseVerificationStatus(raw string) (status VerificationStatus, ok bool) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	s := VerificationStatus(norm)
	if !s.Valid() {
		return StatusNotSupported, false
	}
	return s, true
}

// ClaimVerification is the verification outcome of one claim.
type ClaimVerification struct {
	Status      VerificationStatus `json:"verification_status"`
	Confidence  float64            `json:"confidence"`
	Evidence    string             `json:"evidence"`
	Explanation string             `json:"explanation"`
}

// NewUnverified builds the entry recorded for a claim that could not be
// verified.
func NewUnverified(evidence, explanation string) ClaimVerification {
	return ClaimVerification{
		Status:      StatusNotSupported,
		Confidence:  0,
		Evidence:    evidence,
		Explanation: explanation,
	}
}

// ClaimVerificationFromMap decodes a verification object produced by a model.
// Missing fields get neutral values; confidence accepts numbers or numeric
// strings and is clamped to [0, 100].
func ClaimVerificationFromMap(m map[string]any) ClaimVerification {
	cv := ClaimVerification{Status: StatusNotSupported}
	if raw, ok := m["verification_status"]; ok {
		cv.Status, _ = ParseVerificationStatus(fmt.Sprint(raw))
	}
	cv.Confidence = clampConfidence(toFloat(m["confidence"]))
	cv.Evidence = stringField(m, "evidence")
	cv.Explanation = stringField(m, "explanation")
	return cv
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func clampConfidence(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(100, f))
}
