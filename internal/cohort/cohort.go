// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cohort reads the two cohort description files: the participant
// ID list and the mask-values file mapping label indices to region names.
package cohort

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Region pairs a mask label index with its human-readable name.
type Region struct {
	Index int
	Name  string
}

// MaskTable holds the label-index-to-name mapping in file order. Indices
// are unique; a repeated index updates the name but keeps the first
// occurrence's position.
type MaskTable struct {
	order []int
	names map[int]string
}

// Regions returns the (index, name) pairs in file order.
func (t *MaskTable) Regions() []Region {
	regions := make([]Region, 0, len(t.order))
	for _, idx := range t.order {
		regions = append(regions, Region{Index: idx, Name: t.names[idx]})
	}
	return regions
}

// Name returns the region name for a label index.
func (t *MaskTable) Name(index int) string {
	return t.names[index]
}

// Len returns the number of labeled regions.
func (t *MaskTable) Len() int {
	return len(t.order)
}

// ReadIDList reads participant IDs from path, one per line. Lines are
// whitespace-trimmed and blank lines dropped; order is preserved.
func ReadIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ID list %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ID list %s: %w", path, err)
	}
	return ids, nil
}

// ReadMaskValues parses the mask-values file at path, where each line is
// "index<sep>name" (e.g. "1:amygdala"). Whitespace around both parts is
// trimmed. Malformed lines are not recovered from: a missing or repeated
// separator or a non-numeric index fails the whole read.
func ReadMaskValues(path, sep string) (*MaskTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mask-values file %s: %w", path, err)
	}
	defer f.Close()

	table := &MaskTable{names: make(map[int]string)}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Split(scanner.Text(), sep)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s:%d: expected exactly one %q separator", path, lineNo, sep)
		}
		key, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: label index %q is not an integer", path, lineNo, strings.TrimSpace(parts[0]))
		}
		if _, seen := table.names[key]; !seen {
			table.order = append(table.order, key)
		}
		table.names[key] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mask-values file %s: %w", path, err)
	}
	return table, nil
}
