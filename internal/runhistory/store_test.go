package runhistory

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeginFinishRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	run, err := store.Begin("in.las", "out/", map[string]int{"threads": 4})
	require.NoError(t, err)
	require.NotEmpty(t, run.id)

	require.NoError(t, run.Finish(100, 3, map[string]int64{"header": 1}, nil))

	var status string
	var pointCount, segmentCount int
	err = store.db.QueryRow(
		`SELECT exit_status, point_count, segment_count FROM run_history WHERE run_id = ?`, run.id,
	).Scan(&status, &pointCount, &segmentCount)
	require.NoError(t, err)
	require.Equal(t, "ok", status)
	require.Equal(t, 100, pointCount)
	require.Equal(t, 3, segmentCount)
}

func TestFinishRecordsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	run, err := store.Begin("in.las", "out/", map[string]int{})
	require.NoError(t, err)
	require.NoError(t, run.Finish(0, 0, nil, errors.New("boom")))

	var status string
	var errMsg string
	err = store.db.QueryRow(
		`SELECT exit_status, error_message FROM run_history WHERE run_id = ?`, run.id,
	).Scan(&status, &errMsg)
	require.NoError(t, err)
	require.Equal(t, "error", status)
	require.Equal(t, "boom", errMsg)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	store1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := Open(path)
	require.NoError(t, err)
	defer store2.Close()
}
