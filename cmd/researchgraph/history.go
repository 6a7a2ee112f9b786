package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smallnest/researchgraph/render"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit     int
		showState bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or show the checkpoints and activity of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				j, err := a.openJournal()
				if err != nil {
					return err
				}
				runs, err := j.Runs(ctx, limit)
				if err != nil {
					return err
				}
				for _, id := range runs {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			runID := args[0]
			store, err := a.checkpointStore(ctx)
			if err != nil {
				return err
			}
			if store != nil {
				checkpoints, err := store.List(ctx, runID)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "STEP\tSTAGE\tTIME\tERROR")
				for _, cp := range checkpoints {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", cp.Step, cp.Stage, cp.Timestamp.Format(time.RFC3339), cp.State.Error)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if showState && len(checkpoints) > 0 {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(checkpoints[len(checkpoints)-1].State); err != nil {
						return err
					}
				}
			}

			j, err := a.openJournal()
			if errors.Is(err, errNoJournal) {
				if store == nil {
					return errors.New("nothing to show, configure checkpoints or journal.path")
				}
				return nil
			}
			if err != nil {
				return err
			}
			entries, err := j.Entries(ctx, runID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(out, render.Entry(e))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().BoolVar(&showState, "state", false, "print the state of the last checkpoint as JSON")
	return cmd
}
