package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/researchgraph/rag"
	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store"
)

func checkpoint(id, runID string, step int) *research.Checkpoint {
	s := research.NewState(runID, "approval delay issue")
	s.RetrievedDocs = []rag.Document{rag.NewDocument("Approvals need sign-off.", "approvals.md")}
	s.VerifiedClaims = map[string]rag.ClaimVerification{
		"Approvals need sign-off": {Status: rag.StatusSupported, Confidence: 90, Evidence: "needs sign-off"},
	}
	return &research.Checkpoint{
		ID:        id,
		RunID:     runID,
		Stage:     research.StageRetrieve,
		Step:      step,
		State:     s,
		Timestamp: time.Date(2026, 1, 2, 3, 4, step, 0, time.UTC),
	}
}

func TestCheckpointStore_New(t *testing.T) {
	t.Parallel()

	t.Run("creates directory if missing", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "checkpoints")

		fs, err := NewCheckpointStore(path)
		require.NoError(t, err)
		require.NotNil(t, fs)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("works with existing directory", func(t *testing.T) {
		t.Parallel()
		fs, err := NewCheckpointStore(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, fs)
	})
}

func TestCheckpointStore_SaveAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		fs, err := NewCheckpointStore(t.TempDir())
		require.NoError(t, err)

		cp := checkpoint("cp-1", "run-1", 1)
		require.NoError(t, fs.Save(ctx, cp))

		_, err = os.Stat(filepath.Join(fs.path, "cp-1.json"))
		require.NoError(t, err)

		loaded, err := fs.Load(ctx, "cp-1")
		require.NoError(t, err)
		assert.Equal(t, cp.RunID, loaded.RunID)
		assert.Equal(t, cp.Stage, loaded.Stage)
		assert.True(t, cp.Timestamp.Equal(loaded.Timestamp))
		assert.Equal(t, cp.State.VerifiedClaims, loaded.State.VerifiedClaims)
		assert.Equal(t, "approvals.md", loaded.State.RetrievedDocs[0].Source())
	})

	t.Run("load missing checkpoint", func(t *testing.T) {
		t.Parallel()
		fs, err := NewCheckpointStore(t.TempDir())
		require.NoError(t, err)

		_, err = fs.Load(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rejects path-like ids", func(t *testing.T) {
		t.Parallel()
		fs, err := NewCheckpointStore(t.TempDir())
		require.NoError(t, err)

		assert.Error(t, fs.Save(ctx, checkpoint("../escape", "run-1", 1)))
		_, err = fs.Load(ctx, "")
		assert.Error(t, err)
	})
}

func TestCheckpointStore_ListDeleteClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs, err := NewCheckpointStore(t.TempDir())
	require.NoError(t, err)

	for _, step := range []int{2, 3, 1} {
		require.NoError(t, fs.Save(ctx, checkpoint(fmt.Sprintf("a-%d", step), "run-a", step)))
	}
	require.NoError(t, fs.Save(ctx, checkpoint("b-1", "run-b", 1)))

	list, err := fs.List(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, cp := range list {
		assert.Equal(t, i+1, cp.Step)
	}

	require.NoError(t, fs.Delete(ctx, "a-2"))
	require.NoError(t, fs.Delete(ctx, "a-2"))
	list, err = fs.List(ctx, "run-a")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, fs.Clear(ctx, "run-a"))
	list, err = fs.List(ctx, "run-a")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = fs.List(ctx, "run-b")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCheckpointStore_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs, err := NewCheckpointStore(t.TempDir())
	require.NoError(t, err)

	const workers, perWorker = 5, 3
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range perWorker {
				cp := checkpoint(fmt.Sprintf("worker-%d-%d", w, j), fmt.Sprintf("run-%d", w), j+1)
				if !assert.NoError(t, fs.Save(ctx, cp)) {
					return
				}
				loaded, err := fs.Load(ctx, cp.ID)
				if assert.NoError(t, err) {
					assert.Equal(t, cp.ID, loaded.ID)
				}
			}
		}()
	}
	wg.Wait()

	files, err := os.ReadDir(fs.path)
	require.NoError(t, err)
	jsonCount := 0
	for _, f := range files {
		if !f.IsDir() && filepath.Ext(f.Name()) == ".json" {
			jsonCount++
		}
	}
	assert.Equal(t, workers*perWorker, jsonCount)
}
