package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ecoweave/internal/analysis"
	"ecoweave/internal/config"
	"ecoweave/internal/journal"
	"ecoweave/internal/protocol"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Inspect journaled analysis runs",
}

var replayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		jrnl, err := openJournal()
		if err != nil {
			return err
		}
		defer jrnl.Close()

		runs, err := jrnl.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}
		for _, r := range runs {
			desc := r.Description
			if len(desc) > 60 {
				desc = desc[:57] + "..."
			}
			fmt.Printf("%s  %s  %4d frames  %s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.FrameCount, desc)
		}
		return nil
	},
}

var replayShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Replay a run's frames and print the final snapshot",
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
		printSnapshot(snap)
		return nil
	},
}

func init() {
	replayCmd.AddCommand(replayListCmd)
	replayCmd.AddCommand(replayShowCmd)
	rootCmd.AddCommand(replayCmd)
}

func openJournal() (*journal.Journal, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path, err := cfg.JournalPath()
	if err != nil {
		return nil, err
	}
	return journal.Open(path)
}

// replayRun pushes a run's recorded frames through the real parser and
// reducer, exactly as the live stream would have.
func replayRun(jrnl *journal.Journal, runID string) (analysis.Snapshot, error) {
	frames, err := jrnl.Frames(runID)
	if err != nil {
		return analysis.Snapshot{}, err
	}
	if len(frames) == 0 {
		return analysis.Snapshot{}, fmt.Errorf("run %s has no recorded frames", runID)
	}

	var snap analysis.Snapshot
	p := &protocol.Parser{}
	for _, frame := range frames {
		for _, ev := range p.Feed(append(frame, '\n')) {
			snap = analysis.Reduce(snap, ev)
		}
	}
	p.Close()
	return snap, nil
}

func printSnapshot(s analysis.Snapshot) {
	fmt.Printf("Stage: %s\n", s.Stage)
	if s.Err != "" {
		fmt.Printf("Error: %s\n", s.Err)
	}

	fmt.Printf("\nExtracted materials (%d): %s\n",
		len(s.ExtractedMaterials), strings.Join(s.ExtractedMaterials, ", "))

	fmt.Printf("\nMatched flows (%d):\n", len(s.Flows))
	for _, f := range s.Flows {
		fmt.Printf("  %s [%s, %s]\n", f.Name, f.FlowType, f.Confidence)
	}
	if unmatched := s.UnmatchedMaterials(); len(unmatched) > 0 {
		fmt.Printf("\nUnmatched materials: %s\n", strings.Join(unmatched, ", "))
	}

	fmt.Printf("\nEcosystem services (%d): %s\n", len(s.Services), strings.Join(s.Services, ", "))
	fmt.Printf("\nConnections (%d):\n", len(s.Connections))
	for _, c := range s.Connections {
		fmt.Printf("  %s -> %s (%s)\n", c.BMFName, c.EcosystemService, c.RelationshipType)
	}

	if r := s.Result; r != nil {
		fmt.Printf("\nProcessed in %.1fs, cost $%.4f\n", r.ProcessingTimeMS/1000, r.CostUSD)
	}
}
