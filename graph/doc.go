// Package graph provides a small typed state-machine engine for building
// sequential pipelines.
//
// A StateGraph[S] holds named nodes that each take a state value of type S and
// return a new one. Nodes are wired with static edges or conditional edges
// that inspect the produced state and name the next node. Execution starts at
// the entry point and stops when the special END node is reached.
//
// # Example Usage
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("fetch", "Fetch the input", fetch)
//	g.AddNode("report", "Write the report", report)
//	g.SetEntryPoint("fetch")
//	g.AddConditionalEdge("fetch", func(ctx context.Context, s MyState) string {
//		if s.Err != "" {
//			return graph.END
//		}
//		return "report"
//	}, "report", graph.END)
//	g.AddEdge("report", graph.END)
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := runnable.Invoke(ctx, MyState{})
//
// # Observability
//
// A Tracer attached with SetTracer or WithTracer receives a span for the whole
// invocation, one per node, and one per edge traversal. TraceHook
// implementations can forward these spans to other systems.
//
// # Visualization
//
// Exporter renders a graph as a Mermaid flowchart or a Graphviz DOT document.
package graph
