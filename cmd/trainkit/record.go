package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/born-ml/trainkit/internal/toolkit"
)

func (a *app) recordCommand() *cobra.Command {
	var (
		name       string
		summaryDir string
	)
	cmd := &cobra.Command{
		Use:   "record <history.yaml>",
		Short: "Summarize a training history into an experiment record",
		Long: "Reads a YAML mapping of metric name to per-epoch values (loss, accuracy,\n" +
			"val_loss and val_accuracy are required) and prints the experiment record.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			history, err := toolkit.ReadHistory(f)
			if err != nil {
				return err
			}

			m := a.cfg.Model
			exp := toolkit.NewExperiment(name, map[string]any{
				"dataset":   m.Dataset,
				"version":   m.Version,
				"optimizer": a.cfg.Optimizer.Name,
				"epochs":    len(history["loss"]),
			})
			exp.SummaryDir = summaryDir
			if exp.SummaryDir == "" {
				exp.SummaryDir = a.cfg.Training.SummaryDir
			}

			if _, err := toolkit.LogFromHistory(history, exp); err != nil {
				return err
			}
			text, err := exp.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "experiment name")
	cmd.Flags().StringVar(&summaryDir, "summary-dir", "", "write summary events here (default from config)")
	return cmd
}
