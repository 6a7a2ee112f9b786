package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Count int
	Path  []string
	Fail  bool
}

func step(name string) NodeFunc[counterState] {
	return func(ctx context.Context, s counterState) (counterState, error) {
		s.Count++
		s.Path = append(append([]string(nil), s.Path...), name)
		return s, nil
	}
}

func TestStateGraph_SequentialInvoke(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "first", step("a"))
	g.AddNode("b", "second", step("b"))
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, 2, final.Count)
	assert.Equal(t, []string{"a", "b"}, final.Path)
}

func TestStateGraph_ConditionalEdge(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("work", "work", func(ctx context.Context, s counterState) (counterState, error) {
		s.Path = append(s.Path, "work")
		return s, nil
	})
	g.AddNode("recover", "recover", step("recover"))
	g.AddNode("done", "done", step("done"))
	g.SetEntryPoint("work")
	g.AddConditionalEdge("work", func(ctx context.Context, s counterState) string {
		if s.Fail {
			return "recover"
		}
		return "done"
	}, "recover", "done")
	g.AddEdge("recover", END)
	g.AddEdge("done", END)

	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), counterState{Fail: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "recover"}, final.Path)

	final, err = r.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "done"}, final.Path)
}

func TestStateGraph_ConditionalEdgeUndeclaredTarget(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", step("a"))
	g.AddNode("b", "b", step("b"))
	g.AddEdge("b", END)
	g.SetEntryPoint("a")
	g.AddConditionalEdge("a", func(ctx context.Context, s counterState) string { return END }, "b")

	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), counterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared node")
}

func TestStateGraph_CompileErrors(t *testing.T) {
	t.Run("no entry point", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "a", step("a"))
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrEntryPointNotSet)
	})

	t.Run("unknown entry point", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.SetEntryPoint("missing")
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("unknown edge target", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "a", step("a"))
		g.AddEdge("a", "missing")
		g.SetEntryPoint("a")
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("unknown conditional target", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "a", step("a"))
		g.AddConditionalEdge("a", func(ctx context.Context, s counterState) string { return END }, "missing")
		g.SetEntryPoint("a")
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("fan out", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "a", step("a"))
		g.AddNode("b", "b", step("b"))
		g.AddNode("c", "c", step("c"))
		g.AddEdge("a", "b")
		g.AddEdge("a", "c")
		g.SetEntryPoint("a")
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrAmbiguousEdge)
	})
}

func TestStateGraph_NodeErrorReturnsLastState(t *testing.T) {
	boom := errors.New("boom")
	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", step("a"))
	g.AddNode("b", "b", func(ctx context.Context, s counterState) (counterState, error) {
		s.Count = 100
		return s, boom
	})
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), counterState{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "error in node b")
	assert.Equal(t, 1, final.Count)
}

func TestStateGraph_PanicBecomesError(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", func(ctx context.Context, s counterState) (counterState, error) {
		panic("kaboom")
	})
	g.AddEdge("a", END)
	g.SetEntryPoint("a")

	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), counterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestStateGraph_MaxSteps(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("loop", "loop", step("loop"))
	g.AddEdge("loop", "loop")
	g.SetEntryPoint("loop")
	g.SetMaxSteps(3)

	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrMaxStepsExceeded)
	assert.Equal(t, 3, final.Count)
}

func TestStateGraph_CanceledContext(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "a", step("a"))
	g.AddEdge("a", END)
	g.SetEntryPoint("a")

	r, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	final, err := r.Invoke(ctx, counterState{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, final.Count)
}

func TestStateGraph_Nodes(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("z", "last letter", step("z"))
	g.AddNode("a", "first letter", step("a"))
	g.AddNode("z", "replaced", step("z"))

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "z", nodes[0].Name)
	assert.Equal(t, "replaced", nodes[0].Description)
	assert.Equal(t, "a", nodes[1].Name)
}
