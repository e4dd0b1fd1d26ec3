// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/radiomics-engine/internal/extractor"
	"github.com/pdiddy/radiomics-engine/internal/layout"
	"github.com/pdiddy/radiomics-engine/pkg/types"
)

var testNow = time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC)

type extractCall struct {
	volume string
	mask   string
	label  int
}

// fakeExtractor returns canned per-label results and records every call.
type fakeExtractor struct {
	features   map[int]map[string]string
	degenerate map[int]string // label -> rejection message
	fail       map[int]error  // label -> hard failure
	calls      []extractCall
	volContent map[string]string // volume path -> content read during the call
}

func (f *fakeExtractor) Extract(volumePath, maskPath string, label int) (map[string]string, error) {
	f.calls = append(f.calls, extractCall{volumePath, maskPath, label})
	if f.volContent != nil {
		if data, err := os.ReadFile(volumePath); err == nil {
			f.volContent[volumePath] = string(data)
		}
	}
	if msg, ok := f.degenerate[label]; ok {
		return nil, &extractor.DegenerateMaskError{Message: msg}
	}
	if err, ok := f.fail[label]; ok {
		return nil, err
	}
	return f.features[label], nil
}

type recordedRegion struct {
	id      string
	label   int
	name    string
	status  string
	message string
}

type fakeRecorder struct {
	participants map[string]string
	regions      []recordedRegion
	failAll      bool
}

func (r *fakeRecorder) Participant(id, status string) error {
	if r.failAll {
		return errors.New("ledger unavailable")
	}
	if r.participants == nil {
		r.participants = map[string]string{}
	}
	r.participants[id] = status
	return nil
}

func (r *fakeRecorder) Region(id string, label int, name, status, message string) error {
	if r.failAll {
		return errors.New("ledger unavailable")
	}
	r.regions = append(r.regions, recordedRegion{id, label, name, status, message})
	return nil
}

// newFixture builds a two-participant cohort on disk and returns its
// configuration. ROI files carry an "aseg_" prefix, volumes none.
func newFixture(t *testing.T) types.ExtractionConfig {
	t.Helper()
	base := t.TempDir()
	volumes := filepath.Join(base, "volumes")
	regions := filepath.Join(base, "regions")
	for _, dir := range []string{volumes, regions} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	write := func(path, content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []string{"sub-01", "sub-02"} {
		write(filepath.Join(volumes, id+"_T1.nii"), "volume "+id)
		write(filepath.Join(regions, "aseg_"+id+".nii"), "roi "+id)
	}

	maskValues := filepath.Join(base, "maskvalues.txt")
	write(maskValues, "1:amygdala\n14:hippocampus\n")
	idList := filepath.Join(base, "participants.txt")
	write(idList, "sub-01\nsub-02\n")
	paramsPath := filepath.Join(base, "parameters.yaml")
	write(paramsPath, "setting:\n  binWidth: 25\n")

	return types.ExtractionConfig{
		CohortConfig: types.CohortConfig{
			VolumesDir:     volumes,
			RegionsDir:     regions,
			RegionPrefix:   "aseg_",
			MaskValuesPath: maskValues,
			IDListPath:     idList,
		},
		ParamsPath: paramsPath,
		OutputDir:  filepath.Join(base, "out"),
		Separator:  ":",
	}
}

func defaultFeatures() map[int]map[string]string {
	return map[int]map[string]string{
		1:  {"firstorder_Mean": "10.5", "shape_Volume": "3"},
		14: {"glcm_Contrast": "0.7"},
	}
}

func featurePath(t *testing.T, cfg types.ExtractionConfig, id string) string {
	t.Helper()
	root, err := OutputRoot(cfg, testNow)
	if err != nil {
		t.Fatal(err)
	}
	return layout.FeatureFile(root, id)
}

func TestRunCohortWritesFeatureBlocks(t *testing.T) {
	cfg := newFixture(t)
	ext := &fakeExtractor{features: defaultFeatures()}
	var buf bytes.Buffer

	result, err := RunCohort(cfg, ext, nil, testNow, &buf)
	if err != nil {
		t.Fatalf("RunCohort: %v", err)
	}
	if result.Processed != 2 || result.Extracted != 4 || result.MaskErrors != 0 {
		t.Errorf("result = %+v, want 2 processed, 4 extracted", result)
	}

	want := "\n$[amygdala:1]" +
		"\nfirstorder_Mean:10.5" +
		"\nshape_Volume:3" +
		"\nMASKBREAK\n" +
		"\n$[hippocampus:14]" +
		"\nglcm_Contrast:0.7" +
		"\nMASKBREAK\n"
	for _, id := range []string{"sub-01", "sub-02"} {
		data, err := os.ReadFile(featurePath(t, cfg, id))
		if err != nil {
			t.Fatalf("reading output for %s: %v", id, err)
		}
		if string(data) != want {
			t.Errorf("output for %s = %q, want %q", id, string(data), want)
		}
	}

	// Regions run in mask-file order for each participant.
	if len(ext.calls) != 4 {
		t.Fatalf("extractor called %d times, want 4", len(ext.calls))
	}
	if ext.calls[0].label != 1 || ext.calls[1].label != 14 {
		t.Errorf("labels out of order: %+v", ext.calls[:2])
	}
	if !strings.Contains(buf.String(), "Cohort summary:") {
		t.Error("output should contain cohort summary")
	}
}

func TestRunCohortDegenerateMask(t *testing.T) {
	cfg := newFixture(t)
	ext := &fakeExtractor{
		features:   defaultFeatures(),
		degenerate: map[int]string{14: "mask only contains 1 segmented voxel"},
	}
	var buf bytes.Buffer

	result, err := RunCohort(cfg, ext, nil, testNow, &buf)
	if err != nil {
		t.Fatalf("RunCohort: %v", err)
	}
	if result.MaskErrors != 2 || result.Extracted != 2 {
		t.Errorf("result = %+v, want 2 mask errors and 2 extracted", result)
	}

	data, err := os.ReadFile(featurePath(t, cfg, "sub-01"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if got := strings.Count(content, "$MASKERROR[hippocampus:14] mask only contains 1 segmented voxel"); got != 1 {
		t.Errorf("mask error line count = %d, want 1\noutput: %q", got, content)
	}
	if strings.Contains(content, "$[hippocampus:14]") {
		t.Error("rejected region must not have a success header")
	}
	// The rejected region contributes no MASKBREAK; only amygdala's block has one.
	if got := strings.Count(content, "MASKBREAK"); got != 1 {
		t.Errorf("MASKBREAK count = %d, want 1", got)
	}
	if !strings.Contains(content, "$[amygdala:1]") {
		t.Error("preceding region block missing")
	}
}

func TestRunCohortMissingInput(t *testing.T) {
	cfg := newFixture(t)
	if err := os.Remove(filepath.Join(cfg.RegionsDir, "aseg_sub-02.nii")); err != nil {
		t.Fatal(err)
	}
	ext := &fakeExtractor{features: defaultFeatures()}
	var buf bytes.Buffer

	result, err := RunCohort(cfg, ext, nil, testNow, &buf)
	if err != nil {
		t.Fatalf("RunCohort: %v", err)
	}
	if result.Processed != 1 || result.SkippedMissing != 1 {
		t.Errorf("result = %+v, want 1 processed and 1 skipped missing", result)
	}
	if _, err := os.Stat(featurePath(t, cfg, "sub-02")); !os.IsNotExist(err) {
		t.Error("skipped participant must have no feature file")
	}
	if !strings.Contains(buf.String(), "skipped: sub-02 (no ROI file)") {
		t.Errorf("missing skip diagnostic, got %q", buf.String())
	}
}

func TestRunCohortIdempotentRerun(t *testing.T) {
	cfg := newFixture(t)
	ext := &fakeExtractor{features: defaultFeatures()}
	var buf bytes.Buffer

	if _, err := RunCohort(cfg, ext, nil, testNow, &buf); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(featurePath(t, cfg, "sub-01"))
	if err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := len(ext.calls)

	result, err := RunCohort(cfg, ext, nil, testNow, &buf)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.SkippedDone != 2 || result.Processed != 0 {
		t.Errorf("second run result = %+v, want all skipped as done", result)
	}
	if len(ext.calls) != callsAfterFirst {
		t.Error("second run must not invoke the extractor")
	}

	second, err := os.ReadFile(featurePath(t, cfg, "sub-01"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("output file changed on rerun; must be byte-identical")
	}
}

func TestRunCohortHardToolFailurePropagates(t *testing.T) {
	cfg := newFixture(t)
	ext := &fakeExtractor{
		features: defaultFeatures(),
		fail:     map[int]error{14: errors.New("tool exploded")},
	}
	var buf bytes.Buffer

	_, err := RunCohort(cfg, ext, nil, testNow, &buf)
	if err == nil {
		t.Fatal("expected hard failure to propagate")
	}
	if !strings.Contains(err.Error(), "tool exploded") {
		t.Errorf("error = %v, want tool failure", err)
	}
}

func TestRunCohortCompressedVolumes(t *testing.T) {
	cfg := newFixture(t)
	cfg.Compressed = true

	// Replace sub-01's volume with a gzip-compressed one.
	plain := filepath.Join(cfg.VolumesDir, "sub-01_T1.nii")
	if err := os.Remove(plain); err != nil {
		t.Fatal(err)
	}
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	fmt.Fprint(zw, "inflated volume sub-01")
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(plain+".gz", gz.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	ext := &fakeExtractor{features: defaultFeatures(), volContent: map[string]string{}}
	var buf bytes.Buffer
	if _, err := RunCohort(cfg, ext, nil, testNow, &buf); err != nil {
		t.Fatalf("RunCohort: %v", err)
	}

	sawInflated := false
	for _, call := range ext.calls {
		if strings.HasSuffix(call.volume, ".gz") {
			t.Errorf("extractor received compressed path %s", call.volume)
		}
		if ext.volContent[call.volume] == "inflated volume sub-01" {
			sawInflated = true
		}
	}
	if !sawInflated {
		t.Error("extractor never saw the decompressed volume content")
	}
}

func TestRunCohortRecordsOutcomes(t *testing.T) {
	cfg := newFixture(t)
	if err := os.Remove(filepath.Join(cfg.VolumesDir, "sub-02_T1.nii")); err != nil {
		t.Fatal(err)
	}
	ext := &fakeExtractor{
		features:   defaultFeatures(),
		degenerate: map[int]string{14: "mask is empty"},
	}
	rec := &fakeRecorder{}
	var buf bytes.Buffer

	if _, err := RunCohort(cfg, ext, rec, testNow, &buf); err != nil {
		t.Fatalf("RunCohort: %v", err)
	}

	if rec.participants["sub-01"] != StatusProcessed {
		t.Errorf("sub-01 status = %q, want processed", rec.participants["sub-01"])
	}
	if rec.participants["sub-02"] != StatusSkippedMissing {
		t.Errorf("sub-02 status = %q, want skipped missing", rec.participants["sub-02"])
	}
	if len(rec.regions) != 2 {
		t.Fatalf("recorded %d regions, want 2", len(rec.regions))
	}
	if rec.regions[0].status != RegionExtracted || rec.regions[0].label != 1 {
		t.Errorf("first region record = %+v", rec.regions[0])
	}
	if rec.regions[1].status != RegionMaskError || rec.regions[1].message != "mask is empty" {
		t.Errorf("second region record = %+v", rec.regions[1])
	}
}

func TestRunCohortRecorderFailureIsWarning(t *testing.T) {
	cfg := newFixture(t)
	ext := &fakeExtractor{features: defaultFeatures()}
	rec := &fakeRecorder{failAll: true}
	var buf bytes.Buffer

	result, err := RunCohort(cfg, ext, rec, testNow, &buf)
	if err != nil {
		t.Fatalf("recorder failure must not stop the cohort: %v", err)
	}
	if result.Processed != 2 {
		t.Errorf("result = %+v, want 2 processed", result)
	}
	if !strings.Contains(buf.String(), "warning: ledger") {
		t.Error("expected ledger warning in output")
	}
}

func TestRunCohortMalformedMaskValues(t *testing.T) {
	cfg := newFixture(t)
	if err := os.WriteFile(cfg.MaskValuesPath, []byte("1:amygdala\nbroken line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ext := &fakeExtractor{features: defaultFeatures()}
	var buf bytes.Buffer

	_, err := RunCohort(cfg, ext, nil, testNow, &buf)
	if err == nil {
		t.Fatal("malformed mask-values file must fail the run")
	}
}

func TestOutputRoot(t *testing.T) {
	cfg := newFixture(t)
	root, err := OutputRoot(cfg, testNow)
	if err != nil {
		t.Fatalf("OutputRoot: %v", err)
	}
	if filepath.Base(root) != "05-January-2024_BinWidth_25" {
		t.Errorf("root = %q, want dated BinWidth-tagged name", root)
	}
}
