package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/trainkit/internal/device"
)

func (a *app) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List compute devices and the precision policy after applying the device config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := device.Default()
			if err := a.cfg.Device.Apply(rt); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			visible := make(map[string]bool)
			for _, d := range rt.VisibleDevices() {
				visible[d.Name()] = true
			}
			for _, d := range rt.PhysicalDevices() {
				status := "hidden"
				if visible[d.Name()] {
					status = "visible"
				}
				fmt.Fprintf(out, "%-6s %-8s %s\n", d.Name(), status, d.Description)
				if len(d.Features) > 0 {
					fmt.Fprintf(out, "       features: %s\n", strings.Join(d.Features, " "))
				}
				if d.MemoryGrowth {
					fmt.Fprintln(out, "       memory growth: on")
				}
			}
			fmt.Fprintf(out, "Precision policy: %s\n", device.GlobalPolicy())
			return nil
		},
	}
}
