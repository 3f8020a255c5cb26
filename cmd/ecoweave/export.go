package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ecoweave/internal/analysis"
	"ecoweave/internal/bipartite"
	"ecoweave/internal/config"
)

var (
	exportOut       string
	exportFocus     string
	exportFocusSide string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a journaled run's connection diagram as SVG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jrnl, err := openJournal()
		if err != nil {
			return err
		}
		defer jrnl.Close()

		snap, err := replayRun(jrnl, args[0])
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		opts := bipartite.DefaultSVGOptions()
		if cfg.UI.RowHeight > 0 {
			opts.RowHeight = cfg.UI.RowHeight
		}
		if exportFocus != "" {
			side := bipartite.SideLeft
			if exportFocusSide == "right" {
				side = bipartite.SideRight
			}
			opts.Highlight = bipartite.Highlight{Side: side, ID: exportFocus}
		}

		svg := bipartite.ExportSVG(analysis.BuildGraph(snap), opts)
		if err := os.WriteFile(exportOut, []byte(svg), 0644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		fmt.Printf("wrote %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "ecoweave.svg", "output file")
	exportCmd.Flags().StringVar(&exportFocus, "focus", "", "highlight one item by name")
	exportCmd.Flags().StringVar(&exportFocusSide, "side", "left", "column of the focused item (left or right)")
	rootCmd.AddCommand(exportCmd)
}
