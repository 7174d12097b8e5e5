package report

import (
	"testing"

	"github.com/banshee-data/treeimport/internal/descriptor"
	"github.com/stretchr/testify/require"
)

func TestHistBins(t *testing.T) {
	require.Equal(t, 3, histBins(3))
	require.Equal(t, 5, histBins(10))
	require.Equal(t, 32, histBins(1000))
}

func TestColumnIndex(t *testing.T) {
	cols := []string{"total_height", "trunk_diameter", "crown_diameter"}
	require.Equal(t, 1, columnIndex(cols, "trunk_diameter"))
	require.Equal(t, -1, columnIndex(cols, "missing"))
}

func TestTraitColumnsExtractsRows(t *testing.T) {
	project := descriptor.Project{
		SegmentInformation: []string{"total_height", "trunk_height", "crown_height", "trunk_diameter", "crown_diameter"},
		SegmentValues: []descriptor.Value{
			descriptor.Meters(10), descriptor.RelativeHeight(6, 0.6), descriptor.RelativeHeight(4, 0.4), descriptor.Meters(0.3), descriptor.Meters(2.5),
			descriptor.Meters(8), descriptor.RelativeHeight(5, 0.625), descriptor.RelativeHeight(3, 0.375), descriptor.Meters(0.2), descriptor.Meters(2.0),
		},
	}

	heights, trunkDiam, crownDiam := traitColumns(project)
	require.Equal(t, []float64{10, 8}, heights)
	// Values are stored as float32, so 0.3 and 0.2 come back widened.
	require.Equal(t, []float64{float64(float32(0.3)), float64(float32(0.2))}, trunkDiam)
	require.Equal(t, []float64{2.5, 2.0}, crownDiam)
}

func TestTraitColumnsEmptyProject(t *testing.T) {
	heights, trunkDiam, crownDiam := traitColumns(descriptor.Project{})
	require.Nil(t, heights)
	require.Nil(t, trunkDiam)
	require.Nil(t, crownDiam)
}
