// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package run drives feature extraction across a cohort: participants in
// list order, labeled regions in mask-file order, one flat-text output
// file per participant.
//
// A participant whose output file already exists is skipped wholesale.
// Existence is the sole resume signal; the file's content is never read
// back, so a partially written file from an interrupted run is
// indistinguishable from a complete one. Operators force re-extraction
// by deleting or moving the old file.
package run

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/radiomics-engine/internal/cohort"
	"github.com/pdiddy/radiomics-engine/internal/extractor"
	"github.com/pdiddy/radiomics-engine/internal/layout"
	"github.com/pdiddy/radiomics-engine/internal/params"
	"github.com/pdiddy/radiomics-engine/internal/resolve"
	"github.com/pdiddy/radiomics-engine/pkg/types"
)

// Participant statuses reported to the Recorder.
const (
	StatusProcessed      = "processed"
	StatusSkippedMissing = "skipped_missing_input"
	StatusSkippedDone    = "skipped_already_done"
)

// Region statuses reported to the Recorder.
const (
	RegionExtracted = "extracted"
	RegionMaskError = "mask_error"
)

// Recorder receives per-participant and per-region outcomes. A nil
// Recorder disables recording; recorder failures are warnings, never a
// reason to stop the cohort.
type Recorder interface {
	Participant(id, status string) error
	Region(id string, label int, name, status, message string) error
}

// BatchResult summarizes a cohort run.
type BatchResult struct {
	Processed      int
	SkippedMissing int
	SkippedDone    int
	Extracted      int
	MaskErrors     int
}

// Total returns the number of participants visited.
func (r BatchResult) Total() int {
	return r.Processed + r.SkippedMissing + r.SkippedDone
}

// OutputRoot derives the dated, parameter-tagged output root for a run,
// reading the bin width from the extractor parameter file.
func OutputRoot(cfg types.ExtractionConfig, now time.Time) (string, error) {
	binWidth, err := params.BinWidth(cfg.ParamsPath)
	if err != nil {
		return "", err
	}
	return layout.VerboseRoot(cfg.OutputDir, now, binWidth), nil
}

// RunCohort executes the full extraction loop. Participants with missing
// inputs or pre-existing output are skipped and the cohort continues;
// degenerate-mask rejections are recorded in the output file and the
// region loop continues. Everything else, including the filename
// inconsistency from resolve, propagates and ends the run.
func RunCohort(cfg types.ExtractionConfig, ext extractor.Extractor, rec Recorder, now time.Time, w io.Writer) (BatchResult, error) {
	var result BatchResult

	sep := cfg.Separator
	if sep == "" {
		sep = ":"
	}
	masks, err := cohort.ReadMaskValues(cfg.MaskValuesPath, sep)
	if err != nil {
		return result, err
	}
	ids, err := cohort.ReadIDList(cfg.IDListPath)
	if err != nil {
		return result, err
	}

	root, err := OutputRoot(cfg, now)
	if err != nil {
		return result, err
	}
	if err := layout.CreateFolders(root, ids, w); err != nil {
		return result, err
	}

	for _, id := range ids {
		outcome, err := runParticipant(cfg, ext, masks, root, id, w)
		result.Extracted += outcome.extracted
		result.MaskErrors += outcome.maskErrors
		if err != nil {
			return result, err
		}

		recordParticipant(rec, id, outcome.status, w)
		switch outcome.status {
		case StatusProcessed:
			result.Processed++
		case StatusSkippedMissing:
			result.SkippedMissing++
		case StatusSkippedDone:
			result.SkippedDone++
		}

		if outcome.status == StatusProcessed && rec != nil {
			for _, reg := range outcome.regions {
				if err := rec.Region(id, reg.label, reg.name, reg.status, reg.message); err != nil {
					fmt.Fprintf(w, "warning: ledger region record failed: %v\n", err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\nCohort summary: %d processed, %d skipped (missing input), %d skipped (already done), %d regions extracted, %d mask errors\n",
		result.Processed, result.SkippedMissing, result.SkippedDone, result.Extracted, result.MaskErrors)
	return result, nil
}

type regionOutcome struct {
	label   int
	name    string
	status  string
	message string
}

type participantOutcome struct {
	status     string
	extracted  int
	maskErrors int
	regions    []regionOutcome
}

// runParticipant resolves one participant's inputs and runs the region
// loop. A non-nil error is fatal to the whole cohort.
func runParticipant(cfg types.ExtractionConfig, ext extractor.Extractor, masks *cohort.MaskTable, root, id string, w io.Writer) (participantOutcome, error) {
	var out participantOutcome

	roiPath, roiFound, err := resolve.TargetFile(cfg.RegionsDir, cfg.RegionPrefix, id, w)
	if err != nil {
		return out, err
	}
	volPath, volFound, err := resolve.TargetFile(cfg.VolumesDir, cfg.VolumePrefix, id, w)
	if err != nil {
		return out, err
	}
	if !roiFound {
		fmt.Fprintf(w, "skipped: %s (no ROI file)\n", id)
		out.status = StatusSkippedMissing
		return out, nil
	}
	if !volFound {
		fmt.Fprintf(w, "skipped: %s (no volume file)\n", id)
		out.status = StatusSkippedMissing
		return out, nil
	}

	featPath := layout.FeatureFile(root, id)
	if _, err := os.Stat(featPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (output already at %s; delete or move it to re-extract)\n", id, featPath)
		out.status = StatusSkippedDone
		return out, nil
	}

	if cfg.Compressed && extractor.NeedsDecompression(volPath) {
		tmp, cleanup, err := extractor.Decompress(volPath)
		if err != nil {
			return out, err
		}
		defer cleanup()
		volPath = tmp
	}

	fmt.Fprintf(w, "processing: %s\n  volume: %s\n  roi:    %s\n", id, volPath, roiPath)

	for _, region := range masks.Regions() {
		fmt.Fprintf(w, "  mask %q (label %d)\n", region.Name, region.Index)

		features, err := ext.Extract(volPath, roiPath, region.Index)
		if err != nil {
			if !extractor.IsDegenerateMask(err) {
				return out, err
			}
			fmt.Fprintf(w, "  extraction rejected mask: %v\n", err)
			if werr := appendMaskError(featPath, region.Name, region.Index, err.Error()); werr != nil {
				return out, werr
			}
			out.maskErrors++
			out.regions = append(out.regions, regionOutcome{region.Index, region.Name, RegionMaskError, err.Error()})
			continue
		}

		if err := appendFeatureBlock(featPath, region.Name, region.Index, features); err != nil {
			return out, err
		}
		out.extracted++
		out.regions = append(out.regions, regionOutcome{region.Index, region.Name, RegionExtracted, ""})
	}

	out.status = StatusProcessed
	return out, nil
}

// appendMaskError appends the error marker line for a rejected region.
func appendMaskError(path, name string, label int, msg string) error {
	return appendText(path, fmt.Sprintf("\n$MASKERROR[%s:%d] %s\n", name, label, msg))
}

// appendFeatureBlock appends one region's result block: the section
// header, one feature:value line per feature in name order, and the
// MASKBREAK sentinel.
func appendFeatureBlock(path, name string, label int, features map[string]string) error {
	names := make([]string, 0, len(features))
	for n := range features {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "\n$[%s:%d]", name, label)
	for _, n := range names {
		fmt.Fprintf(&b, "\n%s:%s", n, features[n])
	}
	b.WriteString("\nMASKBREAK\n")
	return appendText(path, b.String())
}

// appendText opens the output file in append mode for one write and
// closes it again, so no handle is held across regions.
func appendText(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file %s: %w", path, err)
	}
	_, werr := f.WriteString(text)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("appending to %s: %w", path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("closing %s: %w", path, cerr)
	}
	return nil
}

func recordParticipant(rec Recorder, id, status string, w io.Writer) {
	if rec == nil {
		return
	}
	if err := rec.Participant(id, status); err != nil {
		fmt.Fprintf(w, "warning: ledger participant record failed: %v\n", err)
	}
}
