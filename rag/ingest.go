package rag

import "context"

// DocumentLoader loads documents from a source such as a file or directory.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
}

// TextSplitter splits documents into smaller chunks. Chunks keep the source
// metadata of the document they came from.
type TextSplitter interface {
	SplitText(text string) []string
	SplitDocuments(docs []Document) []Document
}
