package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ecoweave/internal/analysis"
	"ecoweave/internal/config"
	"ecoweave/internal/journal"
	"ecoweave/internal/logging"
	"ecoweave/internal/ui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI() error {
	if err := logging.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		path, err := cfg.JournalPath()
		if err == nil {
			jrnl, err = journal.Open(path)
		}
		if err != nil {
			// journaling is best-effort, the UI runs without it
			logging.Warn("journal unavailable", "error", err)
		} else {
			defer jrnl.Close()
		}
	}

	client := analysis.NewClient(cfg.Backend)
	app := ui.NewApp(cfg, client, jrnl)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}
