package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mmwave-irs-sim/internal/irs"
)

var (
	gainDisabled bool
	gainBaseDb   float64
	gainElements uint32
)

var gainCmd = &cobra.Command{
	Use:   "gain",
	Short: "Print the effective IRS gain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gainElements == 0 {
			return fmt.Errorf("--elements must be at least 1")
		}
		p := irs.GainParameters{Enabled: !gainDisabled, BaseGainDb: gainBaseDb, ElementsPerUE: gainElements}
		out := cmd.OutOrStdout()
		if !p.Enabled {
			fmt.Fprintln(out, "effective IRS gain: 0.00 dB (surface disabled)")
			return nil
		}
		fmt.Fprintf(out, "effective IRS gain: %.2f dB (base %.2f dB + array %.2f dB for %d elements)\n",
			irs.EffectiveGainDb(p), p.BaseGainDb, p.ArrayGainDb(), p.ElementsPerUE)
		return nil
	},
}

func init() {
	gainCmd.Flags().BoolVar(&gainDisabled, "disabled", false, "Report the gain of a disabled surface")
	gainCmd.Flags().Float64Var(&gainBaseDb, "base", 300, "Base gain in dB")
	gainCmd.Flags().Uint32Var(&gainElements, "elements", 64, "Elements per user")
}
