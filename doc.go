// ResearchGraph - verified question answering over your own documents
//
// ResearchGraph answers a question from a document corpus and checks its own
// answer. A run is a fixed graph of stages:
//
//	query_refine -> retrieve -> rerank -> draft -> extract_claims -> verify_claims -> compose_final_answer
//
// Any stage that fails routes to error_handler, which still produces a
// well-formed answer with zero confidence. The final answer carries the
// sources it cites, a confidence score computed from the verified claims and
// a breakdown of claim statuses.
//
// # Quick Start
//
//	go install github.com/smallnest/researchgraph/cmd/researchgraph@latest
//
//	export OPENAI_API_KEY=...
//	researchgraph ask --corpus ./docs "why are approvals delayed?"
//
// From Go:
//
//	p, err := research.New(research.Collaborators{
//		Searcher:  memory.NewIndex(docs...),
//		Scorer:    memory.KeywordScorer{},
//		Completer: completer,
//	})
//	if err != nil {
//		return err
//	}
//	res := p.Run(ctx, "why are approvals delayed?", nil)
//	fmt.Println(res.FinalAnswer.Answer, res.FinalAnswer.ConfidenceScore)
//
// # Packages
//
//   - research: the pipeline, its state and checkpoints
//   - graph: the generic state graph engine, tracing and visualization
//   - rag: documents, verification results, collaborator interfaces and
//     LangChain adapters
//   - rag/loader, rag/splitter: corpus ingestion
//   - structured: lenient extraction of JSON from model output
//   - activity: the per-run activity log
//   - llms/openai, llms/anthropic: completers and an embedding scorer
//   - llms/rerank: a scorer backed by a cross-encoder HTTP service
//   - store/...: checkpoint stores, searchers, a completion cache and an
//     activity journal
//   - telemetry: OpenTelemetry export of graph spans
//   - render: Markdown, HTML and terminal output
//   - config: layered YAML and environment configuration
//   - log: the logging interface and its golog adapter
package researchgraph // import "github.com/smallnest/researchgraph"
