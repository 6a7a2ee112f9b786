// Package redis provides Redis-backed implementations for the research
// pipeline: a research.CheckpointStore and a completion cache that wraps any
// rag.Completer.
//
// Keys share a configurable prefix (default "researchgraph:"):
//
//	<prefix>checkpoint:<id>              checkpoint JSON
//	<prefix>run:<run id>:checkpoints     sorted set of checkpoint IDs by step
//	<prefix>completion:<sha256>          cached completion text
//
// A TTL in Options applies to every key written.
//
//	cache := redis.NewCachedCompleter(completer, redis.Options{
//		Addr: "localhost:6379",
//		TTL:  24 * time.Hour,
//	}, redis.WithNamespace("gpt-4o-mini"))
package redis
