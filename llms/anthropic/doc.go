// Package anthropic adapts the Anthropic Messages API to rag.Completer.
package anthropic
