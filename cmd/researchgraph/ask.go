package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/render"
	"github.com/smallnest/researchgraph/research"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatHTML     = "html"
)

type askFlags struct {
	corpus string
	format string
	stream bool
	width  int
}

func newAskCmd(a *app) *cobra.Command {
	var f askFlags

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Research a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.format); err != nil {
				return err
			}
			p, err := a.pipeline(cmd.Context(), f.corpus)
			if err != nil {
				return err
			}

			var sink activity.Sink
			if f.stream {
				sink = entryPrinter(cmd.ErrOrStderr(), render.Entry)
			}
			res := p.Run(cmd.Context(), strings.Join(args, " "), sink)
			if err := writeResult(cmd.OutOrStdout(), res, f.format, f.width); err != nil {
				return err
			}
			if res.Failed() {
				a.logger.Warn("run %s finished with errors: %s", res.RunID, res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.corpus, "corpus", "", "file or directory to search (overrides search.corpus)")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatText, "output format: text, json, markdown or html")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "print pipeline activity to stderr while running")
	cmd.Flags().IntVar(&f.width, "width", 100, "wrap width for text output")
	return cmd
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatMarkdown, formatHTML:
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeResult(w io.Writer, res *research.Result, format string, width int) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatMarkdown:
		_, err := io.WriteString(w, render.Markdown(res.FinalAnswer))
		return err
	case formatHTML:
		_, err := w.Write(render.HTML(res.FinalAnswer))
		return err
	default:
		_, err := io.WriteString(w, render.Terminal(res.FinalAnswer, width))
		return err
	}
}
