package descriptor

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestValueJSONRoundTrip(t *testing.T) {
	values := []Value{
		Index(7),
		Percent(0.5),
		RelativeHeight(1.5, 0.25),
		Meters(3.2),
		MetersSquared(9.1),
		AbsolutePosition(51.5072),
		Degrees(-0.1276),
	}
	for _, v := range values {
		data, err := v.MarshalJSON()
		require.NoError(t, err)

		var got Value
		require.NoError(t, got.UnmarshalJSON(data))
		if diff := cmp.Diff(v, got, cmp.AllowUnexported(Value{})); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestProjectSaveLoadRoundTrip(t *testing.T) {
	p := Project{
		Name:  "test",
		Depth: 2,
		Root: NodeTree{
			Size:  10,
			Index: 3,
			Children: []*NodeTree{
				{Size: 5, Index: 1},
				nil,
				{Size: 5, Index: 2},
			},
		},
		Properties:         []Property{{StorageName: "slice", DisplayName: "Slice", Max: 4294967295}},
		SegmentInformation: []string{"total_height", "trunk_diameter"},
		SegmentValues: []Value{
			Meters(12.3), Meters(0.4),
			Meters(8.1), Meters(0.3),
		},
	}

	path := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, p.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got, cmp.AllowUnexported(Value{})); diff != "" {
		t.Fatalf("project round trip mismatch (-want +got):\n%s", diff)
	}

	row, err := got.Segment(2)
	require.NoError(t, err)
	require.Len(t, row, 2)
}

func TestProjectSegmentRejectsZeroIndex(t *testing.T) {
	p := Project{SegmentInformation: []string{"x"}, SegmentValues: []Value{Meters(1)}}
	_, err := p.Segment(0)
	require.Error(t, err)
}
