// Package openai adapts the OpenAI chat completions and embeddings APIs, or
// any compatible server, to the rag collaborator interfaces.
package openai
