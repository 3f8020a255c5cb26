package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ecoweave/internal/analysis"
	"ecoweave/internal/config"
	"ecoweave/internal/protocol"
)

var invokeJSON bool

var invokeCmd = &cobra.Command{
	Use:   "invoke <strategy description>",
	Short: "Run a synchronous analysis and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client := analysis.NewClient(cfg.Backend)
		result, err := client.Invoke(context.Background(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if invokeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printResult(result)
		return nil
	},
}

func init() {
	invokeCmd.Flags().BoolVar(&invokeJSON, "json", false, "print the raw result document as JSON")
	rootCmd.AddCommand(invokeCmd)
}

func printResult(r *protocol.Result) {
	fmt.Printf("Extracted materials (%d):\n", len(r.ExtractedMaterials))
	for _, m := range r.ExtractedMaterials {
		fmt.Printf("  %s\n", m)
	}

	fmt.Printf("\nMatched flows (%d):\n", len(r.MatchedBMFs))
	for _, f := range r.MatchedBMFs {
		fmt.Printf("  %s [%s, %s] <- %s\n", f.Name, f.FlowType, f.Confidence, strings.Join(f.MatchedMaterials, ", "))
	}
	if len(r.UnmatchedMaterials) > 0 {
		fmt.Printf("\nUnmatched materials: %s\n", strings.Join(r.UnmatchedMaterials, ", "))
	}

	fmt.Printf("\nEcosystem services (%d):\n", len(r.EcosystemServices))
	for _, s := range r.EcosystemServices {
		fmt.Printf("  %s\n", s)
	}

	fmt.Printf("\nConnections (%d):\n", len(r.EcosystemConnections))
	for _, c := range r.EcosystemConnections {
		fmt.Printf("  %s -> %s (%s)\n", c.BMFName, c.EcosystemService, c.RelationshipType)
	}

	fmt.Printf("\nProcessed in %.1fs, cost $%.4f\n", r.ProcessingTimeMS/1000, r.CostUSD)
}
