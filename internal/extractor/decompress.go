// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extractor

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NeedsDecompression reports whether path names a gzip-compressed input.
func NeedsDecompression(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

// Decompress inflates a gzip-compressed input into a temporary file and
// returns its path together with a cleanup function that removes it.
// Some extraction backends refuse compressed volumes, so callers
// decompress before each extraction and clean up afterwards.
func Decompress(path string) (string, func(), error) {
	in, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("opening compressed input %s: %w", path, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
	}
	defer zr.Close()

	stem := strings.TrimSuffix(filepath.Base(path), ".gz")
	out, err := os.CreateTemp("", "radiomics-*-"+stem)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := out.Name()

	_, copyErr := io.Copy(out, zr)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", nil, fmt.Errorf("decompressing %s: %w", path, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", nil, fmt.Errorf("closing decompressed copy of %s: %w", path, closeErr)
	}

	cleanup := func() { os.Remove(tmpPath) }
	return tmpPath, cleanup, nil
}
