// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve locates per-participant input files by filename
// convention and provides the existence guard used across the pipeline.
package resolve

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// InconsistentListingError reports a file that appeared in a directory
// listing but failed the subsequent existence check. The listing and the
// filesystem disagree, which the pipeline treats as an unrecoverable
// inconsistency rather than a missing input.
type InconsistentListingError struct {
	Path string
}

func (e *InconsistentListingError) Error() string {
	return fmt.Sprintf("resolved file vanished before existence check: %s", e.Path)
}

// Exists reports whether path refers to an existing file or directory.
// When suppress is false, a missing path prints a diagnostic to w.
func Exists(path string, suppress bool, w io.Writer) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	if !suppress {
		fmt.Fprintf(w, "error: cannot find file or directory %q\n", path)
	}
	return false
}

// TargetFile locates the participant's file in dir: the first non-directory
// entry whose name starts with prefix + id. A found=false return means no
// entry qualified and the caller should skip the participant. If the
// matched entry fails the existence re-check, TargetFile returns an
// *InconsistentListingError.
func TargetFile(dir, prefix, id string, w io.Writer) (path string, found bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("listing directory %s: %w", dir, err)
	}

	want := prefix + id
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), want) {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(full); err != nil {
			return "", false, &InconsistentListingError{Path: full}
		}
		return full, true, nil
	}

	fmt.Fprintf(w, "  no file matching %q in %s\n", want, dir)
	return "", false, nil
}
