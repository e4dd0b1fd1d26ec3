package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/radiomics-engine/internal/extractor"
	"github.com/pdiddy/radiomics-engine/internal/ledger"
	"github.com/pdiddy/radiomics-engine/internal/params"
	"github.com/pdiddy/radiomics-engine/internal/resolve"
	"github.com/pdiddy/radiomics-engine/internal/run"
	"github.com/pdiddy/radiomics-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract radiomics features for every participant in the cohort",
	Long: `Extract walks the participant list in order and, for each participant,
runs the radiomics tool once per labeled region in the mask values
file, appending each region's features to the participant's flat-text
feature file. Participants whose output file already exists are
skipped; delete or move the file to force re-extraction.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("volumes", "", "directory of imaging volumes")
	extractCmd.Flags().String("regions", "", "directory of ROI mask files")
	extractCmd.Flags().String("volume-prefix", "", "filename prefix of volume files")
	extractCmd.Flags().String("region-prefix", "", "filename prefix of ROI files")
	extractCmd.Flags().String("mask-values", "", "label-index to region-name mapping file")
	extractCmd.Flags().String("ids", "", "participant ID list file")
	extractCmd.Flags().String("params", "", "extraction parameter file (YAML, must set setting.binWidth)")
	extractCmd.Flags().String("output", "", "base directory for output folders")
	extractCmd.Flags().String("separator", ":", "key/value separator in the mask values file")
	extractCmd.Flags().Bool("compressed", false, "volumes are gzip-compressed; inflate to a temp file before extraction")
	extractCmd.Flags().String("ledger", "radiomics-runs.db", "run ledger database path (empty string disables recording)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	compressed, _ := cmd.Flags().GetBool("compressed")
	cfg := types.ExtractionConfig{
		CohortConfig: types.CohortConfig{
			VolumesDir:     stringSetting(cmd, "volumes"),
			RegionsDir:     stringSetting(cmd, "regions"),
			VolumePrefix:   stringSetting(cmd, "volume-prefix"),
			RegionPrefix:   stringSetting(cmd, "region-prefix"),
			MaskValuesPath: stringSetting(cmd, "mask-values"),
			IDListPath:     stringSetting(cmd, "ids"),
		},
		ParamsPath: stringSetting(cmd, "params"),
		OutputDir:  stringSetting(cmd, "output"),
		Separator:  stringSetting(cmd, "separator"),
		Compressed: compressed,
		LedgerPath: stringSetting(cmd, "ledger"),
	}
	for _, required := range []struct{ name, value string }{
		{"--volumes", cfg.VolumesDir},
		{"--regions", cfg.RegionsDir},
		{"--mask-values", cfg.MaskValuesPath},
		{"--ids", cfg.IDListPath},
		{"--params", cfg.ParamsPath},
		{"--output", cfg.OutputDir},
	} {
		if required.value == "" {
			return fmt.Errorf("%s is required", required.name)
		}
	}

	ext, err := extractor.NewCLI(cfg.ParamsPath)
	if err != nil {
		return err
	}

	now := time.Now()
	var rec run.Recorder
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()

		binWidth, err := params.BinWidth(cfg.ParamsPath)
		if err != nil {
			return err
		}
		root, err := run.OutputRoot(cfg, now)
		if err != nil {
			return err
		}
		r, err := l.BeginRun(root, binWidth, now)
		if err != nil {
			return err
		}
		rec = r
	}

	result, err := run.RunCohort(cfg, ext, rec, now, os.Stdout)
	if err != nil {
		var inconsistent *resolve.InconsistentListingError
		if errors.As(err, &inconsistent) {
			fmt.Fprintf(os.Stderr, "error: %v\n", inconsistent)
			os.Exit(3)
		}
		return err
	}
	if result.Total() == 0 {
		fmt.Fprintln(os.Stderr, "warning: participant list was empty; nothing to do")
	}
	return nil
}
