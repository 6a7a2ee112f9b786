// Package rerank provides a rag.Scorer backed by an HTTP cross-encoder
// service, such as text-embeddings-inference serving a reranker model.
//
//	client, err := rerank.New(rerank.WithBaseURL("http://localhost:8080"))
//	if err != nil {
//		return err
//	}
//	scorer := rerank.NewScorer(client, false)
package rerank
