// Package lib provides collapse and expand functions for the codefold format
// on the host filesystem. It re-exports the functionality from the core package.
package lib

import (
	"github.com/go-logr/logr"
	"github.com/mandelsoft/vfs/pkg/osfs"

	"codefold/pkg/core"
)

// Delimiters re-exported from core
const (
	FolderDelim  = core.FolderDelim
	FileDelim    = core.FileDelim
	BinaryMarker = core.BinaryMarker
)

// Result re-exported from core
type Result = core.Result

// Compression re-exported from core
type Compression = core.Compression

// Re-export compressions
const (
	CompressionNone = core.CompressionNone
	CompressionLZ4  = core.CompressionLZ4
	CompressionZstd = core.CompressionZstd
)

// IsBinaryName is a wrapper around core.IsBinaryName
func IsBinaryName(name string) bool {
	return core.IsBinaryName(name)
}

// Collapse writes the directories in roots into the archive at output.
// Skipped directories and files are reported in the result's warnings.
func Collapse(output string, roots ...string) (*Result, error) {
	return core.CollapseToFile(osfs.New(), output, roots, core.Options{
		Compression: core.CompressionForPath(output),
		Log:         logr.Discard(),
	})
}

// CollapseWith is Collapse with an explicit compression and logger
func CollapseWith(output string, roots []string, compression Compression, log logr.Logger) (*Result, error) {
	return core.CollapseToFile(osfs.New(), output, roots, core.Options{Compression: compression, Log: log})
}

// Expand recreates the archive at input below dest; an empty dest means the
// current directory
func Expand(input, dest string) (*Result, error) {
	return core.ExpandFile(osfs.New(), input, dest, core.Options{Log: logr.Discard()})
}

// List returns the entries of the archive at input without writing anything
func List(input string) (*Result, error) {
	return core.ListFile(osfs.New(), input, core.Options{Log: logr.Discard()})
}
