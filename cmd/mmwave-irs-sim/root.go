package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "mmwave-irs-sim",
	Short:         "mmWave UAV/IRS scenario toolkit",
	Long:          "mmwave-irs-sim runs UAV relay scenarios with an optional IRS and jammer and records per-user path loss and throughput.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(gainCmd)
	rootCmd.AddCommand(dashboardCmd)
}
