// Package research implements the multi-stage research pipeline: query
// refinement, retrieval, reranking, drafting, claim extraction, claim
// verification and final answer composition.
//
// The stages run as nodes of a graph.StateGraph. After every stage a
// conditional edge checks the state; the first recorded failure routes the
// run to an error handler, which writes an error-shaped final answer and
// ends the run. A Run therefore always returns a complete Result.
//
//	p, err := research.New(research.Collaborators{
//	    Searcher:  searcher,
//	    Scorer:    scorer,
//	    Completer: completer,
//	}, research.WithRerankTopK(3))
//	if err != nil {
//	    return err
//	}
//	res := p.Run(ctx, "why are approvals delayed?", nil)
//	fmt.Println(res.FinalAnswer.Answer, res.FinalAnswer.ConfidenceScore)
//
// Every run records its own activity log. Pass an activity.Sink to Run to
// observe entries as they are produced.
package research
