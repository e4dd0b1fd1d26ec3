// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extractor abstracts the external radiomics feature-extraction
// tool behind a single capability, so the cohort loop never depends on
// which tool produces the features.
package extractor

import (
	"errors"
	"fmt"
)

// Extractor computes radiomics features for one labeled region of a
// volume. The returned map pairs feature names with their values as
// reported by the tool; values are written out verbatim and never
// interpreted.
type Extractor interface {
	Extract(volumePath, maskPath string, label int) (map[string]string, error)
}

// DegenerateMaskError reports a region the tool rejected on geometric
// grounds: an empty mask, a single voxel, or too few dimensions. The
// cohort loop records it and moves on; it never aborts a participant.
type DegenerateMaskError struct {
	Message string
}

func (e *DegenerateMaskError) Error() string {
	return e.Message
}

// IsDegenerateMask reports whether err (or anything it wraps) is a
// degenerate-mask rejection.
func IsDegenerateMask(err error) bool {
	var d *DegenerateMaskError
	return errors.As(err, &d)
}

// errToolFailure wraps a tool invocation failure with the inputs that
// triggered it.
func errToolFailure(volume, mask string, label int, err error) error {
	return fmt.Errorf("extracting label %d from %s with mask %s: %w", label, volume, mask, err)
}
