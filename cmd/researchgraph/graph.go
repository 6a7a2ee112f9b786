package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smallnest/researchgraph/rag"
	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store/memory"
)

var errNoModel = errors.New("no model attached")

func newGraphCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the pipeline topology as Mermaid or Graphviz DOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only the topology is rendered, so the collaborators are inert.
			inert := rag.CompleterFunc(func(context.Context, string) (string, error) {
				return "", errNoModel
			})
			p, err := research.New(research.Collaborators{
				Searcher:  memory.NewIndex(),
				Scorer:    memory.KeywordScorer{},
				Completer: inert,
			}, research.WithLogger(a.logger))
			if err != nil {
				return err
			}

			switch format {
			case "mermaid":
				_, err = io.WriteString(cmd.OutOrStdout(), p.Mermaid())
			case "dot":
				_, err = io.WriteString(cmd.OutOrStdout(), p.DOT())
			default:
				err = fmt.Errorf("unknown graph format %q", format)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "output format: mermaid or dot")
	return cmd
}
