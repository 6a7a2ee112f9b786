// Package memory provides in-process implementations: a checkpoint store, a
// TF-IDF keyword index usable as a rag.Searcher, and a keyword rag.Scorer.
// They need no external services and suit tests, demos and small corpora.
package memory
