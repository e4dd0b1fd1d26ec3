// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package params reads the one field this program needs from the
// extractor parameter YAML. The rest of the document belongs to the
// extraction tool and is passed through untouched.
package params

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// paramFile models only the slice of the parameter document we read.
type paramFile struct {
	Setting struct {
		BinWidth *int `yaml:"binWidth"`
	} `yaml:"setting"`
}

// BinWidth returns setting.binWidth from the parameter file at path.
// The value tags the run's output directory so runs with different
// discretization settings land in distinct trees.
func BinWidth(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading parameter file %s: %w", path, err)
	}

	var doc paramFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parsing parameter file %s: %w", path, err)
	}
	if doc.Setting.BinWidth == nil {
		return 0, fmt.Errorf("parameter file %s has no setting.binWidth field", path)
	}
	return *doc.Setting.BinWidth, nil
}
