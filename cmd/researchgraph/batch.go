package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/render"
	"github.com/smallnest/researchgraph/research"
)

type batchLine struct {
	Query           string   `json:"query"`
	RunID           string   `json:"run_id"`
	Answer          string   `json:"final_answer"`
	ConfidenceScore float64  `json:"confidence_score"`
	VerifiedSources []string `json:"verified_sources"`
	Error           string   `json:"error,omitempty"`
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		corpus      string
		concurrency int
		stream      bool
	)

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Research every question in a file, one per line",
		Long:  "Reads questions from file (or stdin when file is - or omitted), skipping blank lines and lines starting with #, and prints one JSON object per question in input order.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			queries, err := readQueries(in)
			if err != nil {
				return err
			}

			p, err := a.pipeline(cmd.Context(), corpus)
			if err != nil {
				return err
			}

			results, err := runBatch(cmd, p, queries, concurrency, stream)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, res := range results {
				if err := enc.Encode(toBatchLine(res)); err != nil {
					return err
				}
			}
			a.logger.Info("answered %d questions", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&corpus, "corpus", "", "file or directory to search (overrides search.corpus)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 4, "number of questions researched at once")
	cmd.Flags().BoolVar(&stream, "stream", false, "print pipeline activity to stderr while running")
	return cmd
}

func runBatch(cmd *cobra.Command, p *research.Pipeline, queries []string, concurrency int, stream bool) ([]*research.Result, error) {
	var printer activity.Sink
	if stream {
		printer = entryPrinter(cmd.ErrOrStderr(), render.Entry)
	}

	results := make([]*research.Result, len(queries))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(concurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.Run(ctx, q, printer)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readQueries(r io.Reader) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return queries, nil
}

func toBatchLine(res *research.Result) batchLine {
	return batchLine{
		Query:           res.OriginalQuery,
		RunID:           res.RunID,
		Answer:          res.FinalAnswer.Answer,
		ConfidenceScore: res.FinalAnswer.ConfidenceScore,
		VerifiedSources: res.FinalAnswer.VerifiedSources,
		Error:           res.Error,
	}
}
