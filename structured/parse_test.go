package structured

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   any
		wantOK bool
	}{
		{"plain array", `["a", "b"]`, []any{"a", "b"}, true},
		{"plain object", `{"k": 1}`, map[string]any{"k": float64(1)}, true},
		{"fenced", "```json\n[\"a\"]\n```", []any{"a"}, true},
		{"bare fence", "```\n{\"k\": true}\n```", map[string]any{"k": true}, true},
		{"prose around", `Here you go: ["x", "y"] hope it helps`, []any{"x", "y"}, true},
		{"trailing comma array", `["a", "b",]`, []any{"a", "b"}, true},
		{"trailing comma object", "{\"a\": 1,\n}", map[string]any{"a": float64(1)}, true},
		{"nested", `[{"a": [1, 2,],},]`, []any{map[string]any{"a": []any{float64(1), float64(2)}}}, true},
		{"array preferred over object", `{"a": [1]}`, []any{float64(1)}, true},
		{"two blocks fail", `["a"] and then ["b"]`, nil, false},
		{"no json", "no structure here", nil, false},
		{"empty", "", nil, false},
		{"unrepairable", `["a" "b"]`, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractObject(t *testing.T) {
	m, ok := ExtractObject("```json\n{\"claim one\": {\"evidence\": [\"x\",],},}\n```")
	require.True(t, ok)
	want := map[string]any{"claim one": map[string]any{"evidence": []any{"x"}}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("ExtractObject() mismatch (-want +got):\n%s", diff)
	}

	_, ok = ExtractObject(`["only", "an", "array"]`)
	assert.False(t, ok)
}

func TestExtractList(t *testing.T) {
	list, ok := ExtractList(`result: ["a",]`)
	require.True(t, ok)
	assert.Equal(t, []any{"a"}, list)

	_, ok = ExtractList(`{"a": 1}`)
	assert.False(t, ok)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `[1]`, StripFences("```json   \n[1]\n```  "))
	assert.Equal(t, "text", StripFences("  text  "))
}

func TestRepairTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a": [1, 2]}`, RepairTrailingCommas(`{"a": [1, 2, ],  }`))
}

// render produces model-style text for v: pretty JSON with a trailing comma
// before every closing bracket, optionally wrapped in code fences.
func render(t *testing.T, v any, fenced bool) string {
	t.Helper()
	b, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	s := string(b)
	s = strings.ReplaceAll(s, "]", ",]")
	s = strings.ReplaceAll(s, "}", ",\n}")
	if fenced {
		s = "```json\n" + s + "\n```"
	}
	return s
}

func TestExtract_RoundTrip(t *testing.T) {
	values := []any{
		[]any{},
		map[string]any{},
		[]any{"alpha", "beta gamma", float64(3), true, nil},
		map[string]any{
			"claim 1": map[string]any{
				"verification_status": "SUPPORTED",
				"confidence":          float64(92.5),
				"evidence":            "quoted text",
			},
			"claim 2": map[string]any{"tags": []any{"x", "y"}, "nested": map[string]any{}},
		},
		[]any{[]any{[]any{"deep"}}, map[string]any{"k": []any{float64(-1), float64(0.25)}}},
	}

	for i, v := range values {
		for _, fenced := range []bool{false, true} {
			text := render(t, v, fenced)

			var got any
			var ok bool
			if _, isObject := v.(map[string]any); isObject {
				got, ok = ExtractObject(text)
			} else {
				got, ok = Extract(text)
			}
			require.True(t, ok, "value %d fenced=%v: %s", i, fenced, text)
			if diff := cmp.Diff(v, got); diff != "" {
				t.Errorf("value %d fenced=%v mismatch (-want +got):\n%s", i, fenced, diff)
			}
		}
	}
}

func TestExtract_Objects(t *testing.T) {
	flat := map[string]any{
		"Claim 1": map[string]any{"verification_status": "SUPPORTED", "confidence": float64(90)},
	}
	for _, fenced := range []bool{false, true} {
		got, ok := Extract(render(t, flat, fenced))
		require.True(t, ok)
		if diff := cmp.Diff(any(flat), got); diff != "" {
			t.Errorf("fenced=%v mismatch (-want +got):\n%s", fenced, diff)
		}
	}

	// Arrays are searched first, so an object holding an array yields the
	// array. ExtractObject is the way to read such objects.
	got, ok := Extract(`{"k":[1]}`)
	require.True(t, ok)
	assert.Equal(t, []any{float64(1)}, got)

	m, ok := ExtractObject(`{"k":[1]}`)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"k": []any{float64(1)}}, m)
}
