package main

import (
	"github.com/spf13/cobra"

	"mmwave-irs-sim/internal/dashboard"
	"mmwave-irs-sim/internal/sim"
)

var (
	dashboardOut   string
	dashboardTitle string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render a Grafana dashboard for the GreptimeDB sample table",
	Long:  "dashboard writes grafana-dashboard.json using the datasource UID from GREPTIMEDB_DATASOURCE_UID.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboard.Render(dashboardOut, dashboardTitle, sim.GreptimeTable)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
	dashboardCmd.Flags().StringVar(&dashboardTitle, "title", "mmWave IRS scenario", "Dashboard title")
}
