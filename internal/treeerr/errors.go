// Package treeerr defines the fatal error kinds the import pipeline can
// surface. Errors returned from internal/pipeline that belong to one of
// these kinds wrap it with context via fmt.Errorf("...: %w", ...) so
// errors.Is/As keep working at the cmd/treeimport boundary. Settings
// errors other than the thread count, and plain I/O errors, wrap none of
// them; ExitCode maps those to 1.
package treeerr

import "errors"

// Sentinel error kinds. The importer never recovers locally from any of
// these; they all propagate to the top-level Run boundary.
var (
	ErrNoInputFile          = errors.New("no input file")
	ErrNoOutputFolder       = errors.New("no output folder")
	ErrOutputFolderIsFile   = errors.New("output folder is a file")
	ErrOutputFolderNotEmpty = errors.New("output folder is not empty")
	ErrNotEnoughThreads     = errors.New("not enough threads: 1 thread is rejected")
	ErrInvalidFile          = errors.New("invalid input file")
	ErrUnsupportedVersion   = errors.New("unsupported laz version")
	ErrTruncated            = errors.New("truncated input file")
	ErrCorruptHeader        = errors.New("corrupt laz header")
	ErrNotWritten           = errors.New("idf slot not written")
)

// ExitCode maps an error produced by the pipeline to a process exit code.
// 0 means success and is returned only for a nil error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoInputFile):
		return 2
	case errors.Is(err, ErrNoOutputFolder):
		return 3
	case errors.Is(err, ErrOutputFolderIsFile):
		return 4
	case errors.Is(err, ErrOutputFolderNotEmpty):
		return 5
	case errors.Is(err, ErrNotEnoughThreads):
		return 6
	case errors.Is(err, ErrInvalidFile), errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrTruncated), errors.Is(err, ErrCorruptHeader):
		return 7
	default:
		return 1
	}
}
