package rag

import (
	"fmt"
	"maps"
)

// MetadataSource is the metadata key holding a document's citation identifier.
const MetadataSource = "source"

// Document is a retrieved or verified unit of text.
//
// Score is nil until the document has been reranked. Scores reported by a
// search backend are kept in Metadata, never in Score.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    *float64       `json:"score,omitempty"`
}

// NewDocument creates a document with the given content and source.
func NewDocument(content, source string) Document {
	doc := Document{Content: content, Metadata: make(map[string]any)}
	if source != "" {
		doc.Metadata[MetadataSource] = source
	}
	return doc
}

// Source returns the source identifier, or "" when none is recorded.
func (d Document) Source() string {
	v, ok := d.Metadata[MetadataSource]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// SourceOr returns the source identifier, falling back to "Document n" where
// n is the 1-based position of the document in its context block.
func (d Document) SourceOr(index int) string {
	if s := d.Source(); s != "" {
		return s
	}
	return fmt.Sprintf("Document %d", index+1)
}

// HasScore reports whether the document carries a relevance score.
func (d Document) HasScore() bool {
	return d.Score != nil
}

// Clone returns a deep copy of the document. Metadata values are copied
// shallowly.
func (d Document) Clone() Document {
	out := Document{Content: d.Content}
	if d.Metadata != nil {
		out.Metadata = maps.Clone(d.Metadata)
	}
	if d.Score != nil {
		score := *d.Score
		out.Score = &score
	}
	return out
}

// WithScore returns a copy of the document carrying score.
func (d Document) WithScore(score float64) Document {
	out := d.Clone()
	out.Score = &score
	return out
}

// CloneDocuments deep-copies a slice of documents. A nil slice stays nil.
func CloneDocuments(docs []Document) []Document {
	if docs == nil {
		return nil
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
