package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ecoweave",
	Short: "Terminal client for building-strategy material flow analysis",
	Long: `ecoweave streams a building strategy through the material flow
analysis service and visualizes the resulting flow-to-ecosystem-service
connections in the terminal. Run without arguments for the interactive UI.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
