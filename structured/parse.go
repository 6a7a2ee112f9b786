package structured

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("```json\\s*")
	fenceClose = regexp.MustCompile("```\\s*")

	// Greedy and DOTALL: the outermost brackets win, so nested values parse
	// but two independent blocks in one response do not.
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

	trailingCommaArray  = regexp.MustCompile(`,\s*\]`)
	trailingCommaObject = regexp.MustCompile(`,\s*\}`)
)

// Extract finds a JSON array, or failing that a JSON object, in free-form
// model text and decodes it. Numbers decode as float64.
//
// Markdown code fences are removed first. If the bracketed span does not
// parse, trailing commas before a closing bracket are dropped and the parse
// is retried once. ok is false when nothing could be decoded.
func Extract(text string) (v any, ok bool) {
	cleaned := StripFences(text)
	span := arrayPattern.FindString(cleaned)
	if span == "" {
		span = objectPattern.FindString(cleaned)
	}
	return decodeSpan(span)
}

// ExtractObject is like Extract but only looks for a JSON object. Use it when
// the object itself contains arrays, which Extract would match first.
func ExtractObject(text string) (map[string]any, bool) {
	v, ok := decodeSpan(objectPattern.FindString(StripFences(text)))
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// ExtractList is like Extract but only accepts an array result.
func ExtractList(text string) ([]any, bool) {
	v, ok := Extract(text)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// StripFences removes ```json and ``` markers and trims the result.
func StripFences(text string) string {
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// RepairTrailingCommas removes a comma that directly precedes a closing
// bracket or brace.
func RepairTrailingCommas(s string) string {
	s = trailingCommaArray.ReplaceAllString(s, "]")
	return trailingCommaObject.ReplaceAllString(s, "}")
}

func decodeSpan(span string) (any, bool) {
	if span == "" {
		return nil, false
	}
	if v, err := decode(span); err == nil {
		return v, true
	}
	if v, err := decode(RepairTrailingCommas(span)); err == nil {
		return v, true
	}
	return nil, false
}

func decode(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
