package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/researchgraph/rag"
	"github.com/smallnest/researchgraph/research"
)

// fakeModel answers each pipeline prompt with a canned reply.
var fakeModel = rag.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "query understanding agent"):
		return "How long do refunds take?", nil
	case strings.Contains(prompt, "You are a reasoning agent"):
		return "Refunds take five business days.", nil
	case strings.Contains(prompt, "claim extraction expert"):
		return `["Refunds take five business days"]`, nil
	case strings.Contains(prompt, "factual verification expert"):
		return `{"Claim 1": {"verification_status": "SUPPORTED", "confidence": 90, "evidence": "five business days", "explanation": "stated"}}`, nil
	case strings.Contains(prompt, "final answer synthesizer"):
		return "Refunds take five business days [Source: refunds.md].", nil
	}
	return "", nil
})

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refunds.md"), []byte("Refunds take five business days after approval."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shipping.md"), []byte("Shipping labels print at the warehouse."), 0o644))
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.completer = fakeModel

	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--log-level", "none"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	require.NoError(t, a.close())
	return stdout.String(), stderr.String(), err
}

func TestGraphCmd(t *testing.T) {
	out, _, err := execute(t, "", "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "query_refine -.-> retrieve")
	assert.Contains(t, out, "error_handler --> END")

	out, _, err = execute(t, "", "graph", "--format", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "query_refine -> error_handler [style=dashed];")

	_, _, err = execute(t, "", "graph", "--format", "svg")
	assert.ErrorContains(t, err, `unknown graph format "svg"`)
}

func TestAskCmd_JSON(t *testing.T) {
	corpus := writeCorpus(t)

	out, _, err := execute(t, "", "ask", "--corpus", corpus, "--format", "json", "refund", "timing")
	require.NoError(t, err)

	var res research.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "refund timing", res.OriginalQuery)
	assert.Equal(t, "How long do refunds take?", res.RefinedQuery)
	assert.Empty(t, res.Error)
	assert.Equal(t, 90.0, res.FinalAnswer.ConfidenceScore)
	assert.Contains(t, res.FinalAnswer.VerifiedSources, "refunds.md")
	assert.NotEmpty(t, res.Logs)
}

func TestAskCmd_TextAndStream(t *testing.T) {
	corpus := writeCorpus(t)

	out, errOut, err := execute(t, "", "ask", "--corpus", corpus, "--stream", "--width", "0", "refund timing")
	require.NoError(t, err)
	assert.Contains(t, out, "Refunds take five business days [Source: refunds.md].")
	assert.Contains(t, out, "90.00%")
	assert.Contains(t, errOut, "Starting research for: refund timing")
}

func TestAskCmd_Errors(t *testing.T) {
	_, _, err := execute(t, "", "ask", "--format", "pdf", "q")
	assert.ErrorContains(t, err, `unknown format "pdf"`)

	_, _, err = execute(t, "", "ask", "q")
	assert.ErrorContains(t, err, "no corpus given")

	_, _, err = execute(t, "", "ask")
	assert.Error(t, err)
}

func TestBatchCmd(t *testing.T) {
	corpus := writeCorpus(t)
	input := "# refunds\nrefund timing\n\nshipping labels\n"

	out, _, err := execute(t, input, "batch", "--corpus", corpus, "-n", "2")
	require.NoError(t, err)

	var lines []batchLine
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var l batchLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "refund timing", lines[0].Query)
	assert.Equal(t, "shipping labels", lines[1].Query)
	assert.NotEqual(t, lines[0].RunID, lines[1].RunID)
	assert.Equal(t, 90.0, lines[0].ConfidenceScore)
}

func TestBatchCmd_BadConcurrency(t *testing.T) {
	_, _, err := execute(t, "q\n", "batch", "--corpus", writeCorpus(t), "-n", "0")
	assert.ErrorContains(t, err, "--concurrency")
}

func TestReadQueries(t *testing.T) {
	qs, err := readQueries(strings.NewReader("  first \n#skip\n\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, qs)
}

func TestHistoryCmd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RESEARCHGRAPH_CHECKPOINTS_BACKEND", "sqlite")
	t.Setenv("RESEARCHGRAPH_CHECKPOINTS_PATH", filepath.Join(dir, "checkpoints.db"))
	t.Setenv("RESEARCHGRAPH_JOURNAL_PATH", filepath.Join(dir, "journal.db"))

	out, _, err := execute(t, "", "ask", "--corpus", writeCorpus(t), "--format", "json", "refund timing")
	require.NoError(t, err)
	var res research.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.RunID)

	out, _, err = execute(t, "", "history")
	require.NoError(t, err)
	assert.Equal(t, res.RunID+"\n", out)

	out, _, err = execute(t, "", "history", res.RunID)
	require.NoError(t, err)
	for _, stage := range research.Stages {
		assert.Contains(t, out, string(stage))
	}
	assert.Contains(t, out, "Starting research for: refund timing")

	out, _, err = execute(t, "", "history", "--state", res.RunID)
	require.NoError(t, err)
	assert.Contains(t, out, `"refined_query": "How long do refunds take?"`)
}

func TestHistoryCmd_NothingConfigured(t *testing.T) {
	_, _, err := execute(t, "", "history", "some-run")
	assert.ErrorContains(t, err, "nothing to show")

	_, _, err = execute(t, "", "history")
	assert.ErrorIs(t, err, errNoJournal)
}
