package splitter

import (
	"maps"
	"strings"

	"github.com/smallnest/researchgraph/rag"
)

// SimpleTextSplitter splits text into chunks of at most ChunkSize bytes,
// preferring to break at Separator.
type SimpleTextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// NewSimpleTextSplitter creates a new SimpleTextSplitter
func NewSimpleTextSplitter(chunkSize, chunkOverlap int) *SimpleTextSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &SimpleTextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separator:    "\n\n",
	}
}

// SplitText splits text into chunks
func (s *SimpleTextSplitter) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := min(start+s.ChunkSize, len(text))

		if end < len(text) {
			if lastSep := strings.LastIndex(text[start:end], s.Separator); lastSep > 0 {
				end = start + lastSep + len(s.Separator)
			}
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}

		next := end - s.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// SplitDocuments splits documents into smaller chunks. Each chunk carries the
// parent's metadata plus chunk_index and total_chunks.
func (s *SimpleTextSplitter) SplitDocuments(documents []rag.Document) []rag.Document {
	var result []rag.Document
	for _, doc := range documents {
		chunks := s.SplitText(doc.Content)
		for i, chunk := range chunks {
			md := make(map[string]any, len(doc.Metadata)+2)
			maps.Copy(md, doc.Metadata)
			md["chunk_index"] = i
			md["total_chunks"] = len(chunks)
			result = append(result, rag.Document{Content: chunk, Metadata: md})
		}
	}
	return result
}
