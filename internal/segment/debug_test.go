package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteDebugSVGCreatesOneFilePerSlab(t *testing.T) {
	dir := t.TempDir()
	poly := NewPolygon(Vec2{X: 1, Z: 1}, 0.1)

	require.NoError(t, WriteDebugSVG(dir, 3, []*Polygon{&poly}))

	path := filepath.Join(dir, "slice_0003.svg")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "<svg")
	require.Contains(t, string(data), "<polygon points=")
}
