package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/researchgraph/rag"
	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store"
)

var checkpointColumns = []string{"id", "run_id", "stage", "step", "state", "timestamp"}

func testCheckpoint() *research.Checkpoint {
	s := research.NewState("run-1", "why are refunds slow")
	s.RefinedQuery = "What delays refund processing?"
	return &research.Checkpoint{
		ID:        "cp-1",
		RunID:     "run-1",
		Stage:     research.StageQueryRefine,
		Step:      1,
		State:     s,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCheckpointStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs := NewCheckpointStoreWithPool(mock, "")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS checkpoints")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, cs.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs := NewCheckpointStoreWithPool(mock, "checkpoints")
	cp := testCheckpoint()
	stateJSON, err := json.Marshal(cp.State)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkpoints")).
		WithArgs(cp.ID, cp.RunID, "query_refine", 1, stateJSON, cp.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, cs.Save(context.Background(), cp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs := NewCheckpointStoreWithPool(mock, "checkpoints")
	cp := testCheckpoint()
	stateJSON, err := json.Marshal(cp.State)
	require.NoError(t, err)

	rows := pgxmock.NewRows(checkpointColumns).
		AddRow(cp.ID, cp.RunID, "query_refine", 1, stateJSON, cp.Timestamp)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, stage, step, state, timestamp FROM checkpoints WHERE id = $1")).
		WithArgs(cp.ID).
		WillReturnRows(rows)

	loaded, err := cs.Load(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.Equal(t, research.StageQueryRefine, loaded.Stage)
	assert.Equal(t, 1, loaded.Step)
	assert.Equal(t, "What delays refund processing?", loaded.State.RefinedQuery)
	assert.Equal(t, "why are refunds slow", loaded.State.OriginalQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStore_LoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(mock pgxmock.PgxPoolIface)
		wantErr  string
		notFound bool
	}{
		{
			name: "not found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
			},
			wantErr:  "checkpoint not found",
			notFound: true,
		},
		{
			name: "database error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT id").WithArgs("missing").WillReturnError(errors.New("connection reset"))
			},
			wantErr: "failed to load checkpoint",
		},
		{
			name: "invalid state json",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(checkpointColumns).
					AddRow("missing", "run-1", "draft", 4, []byte("{not json"), time.Now())
				mock.ExpectQuery("SELECT id").WithArgs("missing").WillReturnRows(rows)
			},
			wantErr: "failed to unmarshal state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setup(mock)
			cs := NewCheckpointStoreWithPool(mock, "checkpoints")
			loaded, err := cs.Load(context.Background(), "missing")
			require.Error(t, err)
			assert.Nil(t, loaded)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.notFound, errors.Is(err, store.ErrNotFound))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCheckpointStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs := NewCheckpointStoreWithPool(mock, "checkpoints")
	first := testCheckpoint()
	second := testCheckpoint()
	second.ID, second.Stage, second.Step = "cp-2", research.StageRetrieve, 2

	s1, _ := json.Marshal(first.State)
	s2, _ := json.Marshal(second.State)
	rows := pgxmock.NewRows(checkpointColumns).
		AddRow(first.ID, "run-1", "query_refine", 1, s1, first.Timestamp).
		AddRow(second.ID, "run-1", "retrieve", 2, s2, second.Timestamp)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE run_id = $1 ORDER BY step ASC")).
		WithArgs("run-1").
		WillReturnRows(rows)

	list, err := cs.List(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "cp-1", list[0].ID)
	assert.Equal(t, research.StageRetrieve, list[1].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStore_ListEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs := NewCheckpointStoreWithPool(mock, "checkpoints")
	mock.ExpectQuery("SELECT id").WithArgs("run-9").WillReturnRows(pgxmock.NewRows(checkpointColumns))

	list, err := cs.List(context.Background(), "run-9")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCheckpointStore_DeleteAndClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs := NewCheckpointStoreWithPool(mock, "checkpoints")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkpoints WHERE id = $1")).
		WithArgs("cp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkpoints WHERE run_id = $1")).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 6))

	require.NoError(t, cs.Delete(context.Background(), "cp-1"))
	require.NoError(t, cs.Clear(context.Background(), "run-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckpointStore_ClearError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs := NewCheckpointStoreWithPool(mock, "checkpoints")
	mock.ExpectExec("DELETE FROM").WithArgs("run-1").WillReturnError(errors.New("read only"))

	err = cs.Clear(context.Background(), "run-1")
	assert.ErrorContains(t, err, "failed to clear checkpoints")
}

var documentColumns = []string{"source", "content", "metadata", "rank"}

func TestSearcher_Search(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSearcherWithPool(mock, "")
	rows := pgxmock.NewRows(documentColumns).
		AddRow("refunds.md", "Refunds are issued within five days.", []byte(`{"team":"billing"}`), 0.6).
		AddRow("", "Refund requests need a receipt.", []byte(nil), 0.2)
	mock.ExpectQuery(regexp.QuoteMeta("plainto_tsquery('english', $1)")).
		WithArgs("refund timing", 3).
		WillReturnRows(rows)

	docs, err := s.Search(context.Background(), "refund timing", 3)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "refunds.md", docs[0].Source())
	assert.Equal(t, "billing", docs[0].Metadata["team"])
	assert.InDelta(t, 0.6, docs[0].Metadata[rag.MetadataSearchScore], 1e-9)
	assert.Nil(t, docs[0].Score)

	assert.Equal(t, "", docs[1].Source())
	assert.Equal(t, "Refund requests need a receipt.", docs[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearcher_SearchNonPositiveK(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	docs, err := NewSearcherWithPool(mock, "docs").Search(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearcher_SearchError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT source").WithArgs("q", 5).WillReturnError(errors.New("timeout"))
	_, err = NewSearcherWithPool(mock, "docs").Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "failed to search documents")
}

func TestSearcher_AddDocuments(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSearcherWithPool(mock, "docs")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS docs")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO docs (source, content, metadata)")).
		WithArgs("a.md", "alpha", []byte(`{"source":"a.md"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.AddDocuments(ctx, []rag.Document{rag.NewDocument("alpha", "a.md")}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
