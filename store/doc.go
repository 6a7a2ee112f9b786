// Package store holds what the checkpoint backends share: the ErrNotFound
// sentinel and step ordering.
//
// Backends live in subpackages:
//   - memory: in-process store, plus a keyword index usable as a searcher
//   - file: one JSON file per checkpoint
//   - sqlite: SQLite store and an activity journal
//   - postgres: PostgreSQL store and a full-text searcher
//   - redis: Redis store and a completion cache
//
// Every backend implements research.CheckpointStore. Load of a missing ID
// returns an error matching ErrNotFound, and List orders by step.
package store
