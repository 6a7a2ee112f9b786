package loader

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/smallnest/researchgraph/rag"
)

// TextLoader loads a single text file as one document.
type TextLoader struct {
	filePath string
	source   string
	metadata map[string]any
}

// TextLoaderOption configures the TextLoader
type TextLoaderOption func(*TextLoader)

// WithMetadata sets additional metadata for loaded documents
func WithMetadata(metadata map[string]any) TextLoaderOption {
	return func(l *TextLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// WithSource overrides the source identifier, which defaults to the file's
// base name.
func WithSource(source string) TextLoaderOption {
	return func(l *TextLoader) {
		l.source = source
	}
}

// NewTextLoader creates a new TextLoader
func NewTextLoader(filePath string, opts ...TextLoaderOption) *TextLoader {
	l := &TextLoader{
		filePath: filePath,
		source:   filepath.Base(filePath),
		metadata: map[string]any{"type": "text"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the file. An empty or whitespace-only file yields no documents.
func (l *TextLoader) Load(ctx context.Context) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, nil
	}

	md := maps.Clone(l.metadata)
	md[rag.MetadataSource] = l.source
	md["path"] = l.filePath
	return []rag.Document{{Content: string(content), Metadata: md}}, nil
}

// DirectoryLoader loads every text file under a directory, in lexical path
// order.
type DirectoryLoader struct {
	root       string
	extensions []string
}

// NewDirectoryLoader creates a loader for files under root whose extension is
// in extensions. With no extensions, ".txt" and ".md" are loaded.
func NewDirectoryLoader(root string, extensions ...string) *DirectoryLoader {
	if len(extensions) == 0 {
		extensions = []string{".txt", ".md"}
	}
	exts := make([]string, len(extensions))
	for i, e := range extensions {
		exts[i] = strings.ToLower(e)
	}
	return &DirectoryLoader{root: root, extensions: exts}
}

// Load walks the directory and loads the matching files.
func (l *DirectoryLoader) Load(ctx context.Context) ([]rag.Document, error) {
	var paths []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(l.extensions, strings.ToLower(filepath.Ext(path))) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", l.root, err)
	}
	slices.Sort(paths)

	var docs []rag.Document
	for _, path := range paths {
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		loaded, err := NewTextLoader(path, WithSource(filepath.ToSlash(rel))).Load(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// StaticLoader returns a fixed list of documents.
type StaticLoader struct {
	Documents []rag.Document
}

// NewStaticLoader creates a new StaticLoader
func NewStaticLoader(documents []rag.Document) *StaticLoader {
	return &StaticLoader{Documents: documents}
}

// Load returns copies of the static documents.
func (l *StaticLoader) Load(ctx context.Context) ([]rag.Document, error) {
	return rag.CloneDocuments(l.Documents), nil
}
