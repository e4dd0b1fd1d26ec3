// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package niftihdr offers a lightweight integrity probe for NIfTI
// volumes, used by the pre-flight check to catch corrupt files before a
// long extraction run starts.
package niftihdr

import (
	"fmt"
	"os"

	"github.com/henghuang/nifti"
)

// Info holds the probed dimensions of a volume.
type Info struct {
	Dims [4]int
}

// Probe reads the NIfTI header of the file at path and returns its
// dimensions. The nifti library panics on malformed input, so the load
// runs behind a recover that converts panics into errors.
func Probe(path string) (Info, error) {
	// Stat first: the library conflates "missing" and "malformed".
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("probing %s: %w", path, err)
	}

	img, err := safelyLoad(path)
	if err != nil {
		return Info{}, fmt.Errorf("parsing NIfTI header of %s: %w", path, err)
	}

	info := Info{Dims: img.GetDims()}
	if info.Dims[0] <= 0 || info.Dims[1] <= 0 || info.Dims[2] <= 0 {
		return Info{}, fmt.Errorf("parsing NIfTI header of %s: degenerate dimensions %v", path, info.Dims)
	}
	return info, nil
}

func safelyLoad(path string) (img nifti.Nifti1Image, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	// rdata=false reads the header only, not the voxel payload.
	img.LoadImage(path, false)

	return
}
