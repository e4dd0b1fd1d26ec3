// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const binPyradiomics = "pyradiomics"

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(name string, args ...string) (stdout, stderr []byte, err error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Output(name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.Command(name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

var defaultExec executor = &osExecutor{}

// CLI runs the pyradiomics command-line tool for each region. The tool is
// asked for CSV output: a header record of feature names followed by one
// record of values.
type CLI struct {
	bin        string
	paramsPath string
	exec       executor
}

// NewCLI returns a CLI extractor configured with the given parameter
// file. It fails if the pyradiomics binary is not on PATH.
func NewCLI(paramsPath string) (*CLI, error) {
	return newCLI(paramsPath, defaultExec)
}

func newCLI(paramsPath string, exec executor) (*CLI, error) {
	if _, err := exec.LookPath(binPyradiomics); err != nil {
		return nil, fmt.Errorf("extraction tool %s not found on PATH: %w", binPyradiomics, err)
	}
	return &CLI{bin: binPyradiomics, paramsPath: paramsPath, exec: exec}, nil
}

// Extract invokes the tool against (volume, mask, label) and parses its
// CSV output into a feature map. Mask-geometry rejections surface as
// *DegenerateMaskError; any other tool failure is a plain error.
func (c *CLI) Extract(volumePath, maskPath string, label int) (map[string]string, error) {
	args := []string{
		volumePath, maskPath,
		"--param", c.paramsPath,
		"--label", strconv.Itoa(label),
		"--format", "csv",
	}

	stdout, stderr, err := c.exec.Output(c.bin, args...)
	if err != nil {
		if msg, ok := degenerateMaskMessage(stderr); ok {
			return nil, &DegenerateMaskError{Message: msg}
		}
		return nil, errToolFailure(volumePath, maskPath, label,
			fmt.Errorf("%w: %s", err, firstLine(stderr)))
	}

	features, err := parseCSV(stdout)
	if err != nil {
		return nil, errToolFailure(volumePath, maskPath, label, err)
	}
	return features, nil
}

// degenerateMaskMessage scans the tool's stderr for the ValueError the
// extraction library raises on empty, single-voxel, or under-dimensioned
// masks. Returns the message portion when found.
func degenerateMaskMessage(stderr []byte) (string, bool) {
	for _, line := range strings.Split(string(stderr), "\n") {
		if idx := strings.Index(line, "ValueError"); idx >= 0 {
			msg := strings.TrimSpace(line[idx:])
			msg = strings.TrimSpace(strings.TrimPrefix(msg, "ValueError:"))
			if msg == "" {
				msg = "mask rejected by extraction tool"
			}
			return msg, true
		}
	}
	return "", false
}

// parseCSV decodes the tool's two-record CSV output into a feature map.
func parseCSV(stdout []byte) (map[string]string, error) {
	records, err := csv.NewReader(bytes.NewReader(stdout)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing tool output: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("tool output has %d CSV record(s), want header and values", len(records))
	}
	header, values := records[0], records[1]
	if len(header) != len(values) {
		return nil, fmt.Errorf("tool output has %d feature names but %d values", len(header), len(values))
	}

	features := make(map[string]string, len(header))
	for i, name := range header {
		features[name] = values[i]
	}
	return features, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
