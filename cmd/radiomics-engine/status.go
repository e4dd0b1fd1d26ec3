package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/radiomics-engine/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the outcome of the most recent extraction run",
	Long: `Status reads the run ledger and prints a summary of the most recent
run: where it wrote output, which bin width it used, and how many
participants and regions landed in each outcome.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("ledger", "radiomics-runs.db", "run ledger database path")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := stringSetting(cmd, "ledger")

	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	s, err := l.LastRun()
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("Last run:    %s\n", s.StartedAt)
	fmt.Printf("Output root: %s\n", s.OutputRoot)
	fmt.Printf("Bin width:   %d\n", s.BinWidth)
	fmt.Printf("Participants: %d processed, %d skipped (missing input), %d skipped (already done)\n",
		s.Processed, s.SkippedMissing, s.SkippedDone)
	fmt.Printf("Regions:      %d extracted, %d mask errors\n", s.Extracted, s.MaskErrors)
	return nil
}
