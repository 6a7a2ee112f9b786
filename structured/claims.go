package structured

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy names the step of a fallback chain that produced a result.
type Strategy int

const (
	// StrategyPrimary means the model output decoded as JSON, directly or
	// after bracket extraction and repair.
	StrategyPrimary Strategy = iota
	// StrategyHeuristic means the output was split into sentences.
	StrategyHeuristic
	// StrategyFixedFallback means a canned result was used because the
	// collaborator call itself failed.
	StrategyFixedFallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyPrimary:
		return "primary"
	case StrategyHeuristic:
		return "heuristic"
	case StrategyFixedFallback:
		return "fixed_fallback"
	default:
		return "unknown"
	}
}

// Claim list bounds used by ParseClaims.
const (
	MinClaimLength       = 10
	MinSentenceLength    = 20
	MaxSentenceLength    = 200
	MaxHeuristicSentence = 5
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// ParseClaims turns a model response into a list of claims.
//
// The response is first decoded as JSON as-is, then through Extract. If
// neither yields a non-empty value the response is split into sentences with
// SplitSentences. A non-list value becomes a one-element list. Entries that
// are not strings or that are at most MinClaimLength characters after
// trimming are dropped.
//
// The strategy is StrategyHeuristic only when the sentence split produced
// something or no JSON decoded at all. An empty JSON value with no usable
// sentences around it is a primary result with no claims.
func ParseClaims(raw string) ([]string, Strategy) {
	strategy := StrategyPrimary

	var v any
	decoded := true
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		v, decoded = Extract(raw)
	}

	var items []any
	switch {
	case !truthy(v):
		sentences := SplitSentences(raw, MinSentenceLength, MaxSentenceLength, MaxHeuristicSentence)
		if len(sentences) > 0 || !decoded {
			strategy = StrategyHeuristic
		}
		for _, s := range sentences {
			items = append(items, s)
		}
	default:
		if list, ok := v.([]any); ok {
			items = list
		} else {
			items = []any{v}
		}
	}

	claims := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > MinClaimLength {
			claims = append(claims, s)
		}
	}
	return claims, strategy
}

// SplitSentences splits text on runs of '.', '!' and '?' and keeps trimmed
// sentences whose length in characters is strictly between minLen and
// maxLen, up to limit of them.
func SplitSentences(text string, minLen, maxLen, limit int) []string {
	var out []string
	for _, part := range sentenceBoundary.Split(text, -1) {
		s := strings.TrimSpace(part)
		n := utf8.RuneCountInString(s)
		if n <= minLen || n >= maxLen {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
