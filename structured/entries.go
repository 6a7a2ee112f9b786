package structured

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Entry is one key/value pair of a decoded JSON object.
type Entry struct {
	Key   string
	Value any
}

var errNotObject = errors.New("not a JSON object")

// ExtractEntries is like ExtractObject but keeps the object's top-level keys
// in the order the model wrote them.
func ExtractEntries(text string) ([]Entry, bool) {
	span := objectPattern.FindString(StripFences(text))
	if span == "" {
		return nil, false
	}
	if entries, err := decodeEntries(span); err == nil {
		return entries, true
	}
	if entries, err := decodeEntries(RepairTrailingCommas(span)); err == nil {
		return entries, true
	}
	return nil, false
}

func decodeEntries(s string) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	entries := []Entry{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, errors.New("unexpected data after JSON object")
	}
	return entries, nil
}
