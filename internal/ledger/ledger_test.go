// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLastRunEmptyLedger(t *testing.T) {
	l := openTestLedger(t)
	s, err := l.LastRun()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRecordAndSummarizeRun(t *testing.T) {
	l := openTestLedger(t)

	started := time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC)
	rec, err := l.BeginRun("/out/05-January-2024_BinWidth_25", 25, started)
	require.NoError(t, err)

	require.NoError(t, rec.Participant("sub-01", StatusProcessed))
	require.NoError(t, rec.Region("sub-01", 1, "amygdala", RegionExtracted, ""))
	require.NoError(t, rec.Region("sub-01", 14, "hippocampus", RegionMaskError, "mask is empty"))
	require.NoError(t, rec.Participant("sub-02", StatusSkippedMissing))
	require.NoError(t, rec.Participant("sub-03", StatusSkippedDone))

	s, err := l.LastRun()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "/out/05-January-2024_BinWidth_25", s.OutputRoot)
	assert.Equal(t, 25, s.BinWidth)
	assert.Equal(t, "2024-01-05T09:00:00Z", s.StartedAt)
	assert.Equal(t, 1, s.Processed)
	assert.Equal(t, 1, s.SkippedMissing)
	assert.Equal(t, 1, s.SkippedDone)
	assert.Equal(t, 1, s.Extracted)
	assert.Equal(t, 1, s.MaskErrors)
}

func TestLastRunPicksNewestRun(t *testing.T) {
	l := openTestLedger(t)

	_, err := l.BeginRun("/out/old", 10, time.Now())
	require.NoError(t, err)
	rec, err := l.BeginRun("/out/new", 25, time.Now())
	require.NoError(t, err)
	require.NoError(t, rec.Participant("sub-01", StatusProcessed))

	s, err := l.LastRun()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "/out/new", s.OutputRoot)
	assert.Equal(t, 1, s.Processed)
}

func TestRegionUpsert(t *testing.T) {
	l := openTestLedger(t)
	rec, err := l.BeginRun("/out/run", 25, time.Now())
	require.NoError(t, err)

	require.NoError(t, rec.Region("sub-01", 1, "amygdala", RegionMaskError, "first attempt"))
	require.NoError(t, rec.Region("sub-01", 1, "amygdala", RegionExtracted, ""))

	s, err := l.LastRun()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Extracted)
	assert.Equal(t, 0, s.MaskErrors)
}

func TestReopenExistingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.BeginRun("/out/run", 25, time.Now())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()
	s, err := l2.LastRun()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "/out/run", s.OutputRoot)
}
