// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout derives the run's output tree. The root carries the run
// date and the extractor's bin width so runs on different days or with
// different settings never collide.
package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	featuresSuffix  = "_Features"
	featureFileName = "_FeatureValues.txt"
	dateForm        = "02-January-2006"
)

// VerboseRoot returns the dated, parameter-tagged output root under base,
// e.g. base/05-January-2024_BinWidth_25.
func VerboseRoot(base string, now time.Time, binWidth int) string {
	return filepath.Join(base, fmt.Sprintf("%s_BinWidth_%d", now.Format(dateForm), binWidth))
}

// FeatureFile returns the per-participant feature output path under root:
// root/<ID>_Features/<ID>_FeatureValues.txt. Its existence is the resume
// signal for the participant.
func FeatureFile(root, id string) string {
	return filepath.Join(root, id+featuresSuffix, id+featureFileName)
}

// CreateFolders creates the output root and one <ID>_Features subfolder
// per participant. Pre-existing directories are tolerated; a rerun over
// the same root is a no-op.
func CreateFolders(root string, ids []string, w io.Writer) error {
	fmt.Fprintf(w, "creating output folders under %s\n", root)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating output root %s: %w", root, err)
	}
	for _, id := range ids {
		dir := filepath.Join(root, id+featuresSuffix)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating participant folder %s: %w", dir, err)
		}
	}
	return nil
}
