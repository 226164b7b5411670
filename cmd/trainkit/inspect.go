package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/born-ml/trainkit/internal/serialization"
)

func inspectCommand() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "inspect <file.born>",
		Short: "Print the header of a weights or optimizer file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			header, err := serialization.ReadHeader(path)
			if err != nil {
				return err
			}
			if verify {
				if _, err := serialization.ReadFile(path); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:     %s\n", path)
			fmt.Fprintf(out, "Kind:     %s\n", header.Kind)
			fmt.Fprintf(out, "Format:   v%d (%s)\n", header.FormatVersion, header.Producer)
			if header.ModelName != "" {
				fmt.Fprintf(out, "Model:    %s\n", header.ModelName)
			}
			fmt.Fprintf(out, "Created:  %s\n", header.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			if verify {
				fmt.Fprintln(out, "Checksum: ok")
			}

			keys := make([]string, 0, len(header.Metadata))
			for k := range header.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  %s = %s\n", k, header.Metadata[k])
			}

			var total int64
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "\nNAME\tDTYPE\tSHAPE\tBYTES")
			for _, t := range header.Tensors {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%d\n", t.Name, t.DType, t.Shape, t.Size)
				total += t.Size
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d tensors, %d bytes\n", len(header.Tensors), total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "read the data section and validate its checksum")
	return cmd
}
