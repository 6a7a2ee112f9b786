package main

import (
	"github.com/spf13/cobra"

	"github.com/smallnest/researchgraph/config"
)

func newRootCmd(a *app) *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           "researchgraph",
		Short:         "Answer questions from documents with verified claims",
		Long:          "researchgraph refines a question, retrieves and reranks passages, drafts an answer, checks every claim against the passages and reports a cited answer with a confidence score.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			return a.configure(cfg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error or none")

	root.AddCommand(
		newAskCmd(a),
		newBatchCmd(a),
		newGraphCmd(a),
		newHistoryCmd(a),
	)
	return root
}
