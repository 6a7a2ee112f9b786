// Package file provides a research.CheckpointStore that writes one JSON file
// per checkpoint. It suits single-process deployments and the CLI.
package file
