// Package types defines the configuration structures shared by the CLI
// and the extraction stages.
package types

// CohortConfig describes where a cohort's input files live and how
// per-participant files are named. Volume and ROI files are located by
// matching directory entries against prefix + participant ID.
type CohortConfig struct {
	// VolumesDir contains the participant image volumes (T1 etc.).
	VolumesDir string `json:"volumes_dir" yaml:"volumes_dir"`

	// RegionsDir contains the region-of-interest label masks.
	RegionsDir string `json:"regions_dir" yaml:"regions_dir"`

	// VolumePrefix is prepended to the participant ID when matching
	// volume filenames. Empty when filenames start with the ID itself.
	VolumePrefix string `json:"volume_prefix" yaml:"volume_prefix"`

	// RegionPrefix is the ROI filename counterpart of VolumePrefix.
	RegionPrefix string `json:"region_prefix" yaml:"region_prefix"`

	// MaskValuesPath is the text file mapping label indices to region
	// names, one "index<sep>name" pair per line.
	MaskValuesPath string `json:"mask_values" yaml:"mask_values"`

	// IDListPath is the text file listing participant IDs, one per line.
	IDListPath string `json:"id_list" yaml:"id_list"`
}

// ExtractionConfig holds everything a full cohort run needs. It replaces
// the form-field state the extraction routine used to read directly, so
// the loop is independent of any particular front-end.
type ExtractionConfig struct {
	CohortConfig `yaml:",inline"`

	// ParamsPath is the extractor parameter YAML. The run reads only
	// setting.binWidth from it; the rest is passed through to the tool.
	ParamsPath string `json:"params" yaml:"params"`

	// OutputDir is the base output location. The dated, parameter-tagged
	// run root is created underneath it.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Separator splits index from name in the mask-values file
	// (conventionally ":").
	Separator string `json:"separator" yaml:"separator"`

	// Compressed indicates that volume files may be gzip-compressed and
	// should be decompressed before each extraction.
	Compressed bool `json:"compressed" yaml:"compressed"`

	// LedgerPath is the SQLite run-ledger location. Empty disables the
	// ledger; extraction itself never depends on it.
	LedgerPath string `json:"ledger" yaml:"ledger"`
}
