package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/trainkit/internal/models"
	"github.com/born-ml/trainkit/internal/toolkit"
)

func (a *app) summaryCommand() *cobra.Command {
	var (
		dataset  string
		alias    string
		resnet   int
		classes  []int
		pooling  string
		savePath string
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Build the configured ResNet and print its layers and parameter counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Model
			flags := cmd.Flags()
			if flags.Changed("dataset") {
				cfg.Dataset = dataset
			}
			if flags.Changed("alias") {
				cfg.Alias = alias
			}
			if flags.Changed("version") {
				cfg.Version = resnet
			}
			if flags.Changed("classes") {
				cfg.HeadClasses = classes
			}
			if flags.Changed("pooling") {
				cfg.FinalPooling = pooling
			}

			model, err := models.ResNet(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			model.Summary(out)
			fmt.Fprintln(out)
			toolkit.PrintModelInfo(out, model)

			if savePath != "" {
				if err := toolkit.SaveModel(model, savePath, nil); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved initial weights to %s\n", savePath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "cifar, cifar10, cifar100 or mnist")
	cmd.Flags().StringVar(&alias, "alias", "", "named architecture, e.g. WRN-16-8")
	cmd.Flags().IntVar(&resnet, "version", 2, "ResNet version, 1 or 2")
	cmd.Flags().IntSliceVar(&classes, "classes", nil, "class count per output head")
	cmd.Flags().StringVar(&pooling, "pooling", models.PoolingAvg, "avgpool, maxpool or catpool")
	cmd.Flags().StringVar(&savePath, "save", "", "write the freshly initialized weights to this .born file")
	return cmd
}
