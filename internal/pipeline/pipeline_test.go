package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/treeimport/internal/descriptor"
	"github.com/banshee-data/treeimport/internal/treeerr"
	"github.com/stretchr/testify/require"
)

func TestPrepareOutputFolderCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	require.NoError(t, prepareOutputFolder(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestPrepareOutputFolderRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	err := prepareOutputFolder(path)
	require.ErrorIs(t, err, treeerr.ErrOutputFolderIsFile)
}

func TestPrepareOutputFolderRejectsNonEmptyWithoutProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644))

	err := prepareOutputFolder(dir)
	require.ErrorIs(t, err, treeerr.ErrOutputFolderNotEmpty)
}

func TestPrepareOutputFolderClearsWhenProjectJSONPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "points.data"), []byte("x"), 0o644))

	require.NoError(t, prepareOutputFolder(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPrepareOutputFolderAllowsEmptyExistingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, prepareOutputFolder(dir))
}

func TestWriteStatisticsRoundTrips(t *testing.T) {
	dir := t.TempDir()
	stats := Stats{
		PointCount:        123,
		SegmentCount:      4,
		StageDurations:    map[string]int64{"header": 1, "decode_and_slice": 2},
		OutputNodeCount:   17,
		HeightPercentiles: Percentiles{P50: 5.5, P85: 9.1, P98: 11.2},
	}
	require.NoError(t, writeStatistics(dir, stats))

	data, err := os.ReadFile(filepath.Join(dir, "statistics.json"))
	require.NoError(t, err)

	var got Stats
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, stats, got)
}

func TestHeightPercentilesEmptyProject(t *testing.T) {
	require.Equal(t, Percentiles{}, heightPercentiles(descriptor.Project{}))
}

func TestHeightPercentilesComputesQuantiles(t *testing.T) {
	project := descriptor.Project{
		SegmentInformation: []string{"total_height", "trunk_diameter"},
		SegmentValues: []descriptor.Value{
			descriptor.Meters(2), descriptor.Meters(0.1),
			descriptor.Meters(4), descriptor.Meters(0.2),
			descriptor.Meters(6), descriptor.Meters(0.3),
			descriptor.Meters(8), descriptor.Meters(0.4),
		},
	}
	p := heightPercentiles(project)
	require.InDelta(t, 5, p.P50, 1.5)
	require.Greater(t, p.P85, p.P50)
	require.GreaterOrEqual(t, p.P98, p.P85)
}
