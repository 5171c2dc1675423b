package core

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
)

// Delimiters for the archive format
const (
	FolderDelim  = "### FOLDER:"            // Opens a folder context
	FileDelim    = "### FILE:"              // Opens a file inside the current folder
	BinaryMarker = "(binary content of the" // Announces a base64 payload
)

// LineWidth is the number of base64 characters per payload line (RFC 2045)
const LineWidth = 76

// Placeholder lines written in place of content that could not be archived
const (
	nonUTF8Comment   = "# Warning: Non-UTF-8 file skipped."
	readErrorComment = "# Error reading file: "
	binErrorComment  = "# Error encoding binary file: "
)

// binaryExtensions is the fixed set of extensions whose content is base64 encoded.
// The encoder and the decoder must agree on it, so it is not configurable.
var binaryExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".ico":  {},
	".pdf":  {},
	".zip":  {},
	".exe":  {},
}

// IsBinaryName reports whether a file name carries one of the binary extensions
func IsBinaryName(name string) bool {
	_, ok := binaryExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// Marker classifies an archive line
type Marker byte

const (
	MarkerNone   Marker = 0 // Content line
	MarkerFolder Marker = 1 // "### FOLDER: label"
	MarkerFile   Marker = 2 // "### FILE: label"
	MarkerBinary Marker = 3 // "(binary content of the name)"
)

// String returns the human-readable name of a marker
func (m Marker) String() string {
	switch m {
	case MarkerNone:
		return "none"
	case MarkerFolder:
		return "folder"
	case MarkerFile:
		return "file"
	case MarkerBinary:
		return "binary"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// ParseMarker classifies a line and returns the label that follows the token.
// Leading and trailing whitespace is ignored, so an indented content line that
// starts with a delimiter is indistinguishable from a marker.
func ParseMarker(line string) (Marker, string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, FolderDelim):
		return MarkerFolder, strings.TrimSpace(trimmed[len(FolderDelim):])
	case strings.HasPrefix(trimmed, FileDelim):
		return MarkerFile, strings.TrimSpace(trimmed[len(FileDelim):])
	case strings.HasPrefix(trimmed, BinaryMarker):
		label := strings.TrimSpace(trimmed[len(BinaryMarker):])
		return MarkerBinary, strings.TrimSuffix(label, ")")
	}
	return MarkerNone, ""
}

// isDelimiter reports whether a line opens a folder or file context
func isDelimiter(line string) bool {
	m, _ := ParseMarker(line)
	return m == MarkerFolder || m == MarkerFile
}

// FolderLine formats a folder marker
func FolderLine(label string) string {
	return FolderDelim + " " + label + "\n"
}

// FileLine formats a file marker
func FileLine(label string) string {
	return FileDelim + " " + label + "\n"
}

// BinaryLine formats the marker that precedes a base64 payload
func BinaryLine(name string) string {
	return BinaryMarker + " " + name + ")\n"
}

// Fatal decode conditions
var (
	ErrFileBeforeFolder = errors.New("file marker before any folder marker")
	ErrUnsafePath       = errors.New("label escapes the destination root")
	ErrMalformedPayload = errors.New("malformed base64 payload")
)

// StreamError locates a fatal decode failure in the archive
type StreamError struct {
	Line int    // 1-based line number of the offending line
	Path string // Label or path involved, if any
	Err  error
}

func (e *StreamError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Path, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Warning records a recoverable per-item problem; the run continued past it
type Warning struct {
	Path string // Source root, file or label the warning is about
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Entry is a folder or file seen while collapsing or expanding
type Entry struct {
	RelPath string // Slash-separated path relative to the archive root
	Binary  bool   // Content was base64 encoded
	Size    uint64 // Content size in bytes, zero for folders
	Folder  bool
}

// Result summarizes a collapse or expand run
type Result struct {
	Folders  int
	Files    int
	Binaries int
	Bytes    uint64 // File content bytes read (collapse) or written (expand)
	Entries  []Entry
	Warnings []Warning
}

func (r *Result) warn(p string, err error) {
	r.Warnings = append(r.Warnings, Warning{Path: p, Err: err})
}

// Err aggregates the recorded warnings, or returns nil when there were none
func (r *Result) Err() error {
	if r == nil || len(r.Warnings) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, w := range r.Warnings {
		merr = multierror.Append(merr, w)
	}
	return merr.ErrorOrNil()
}

// orDiscard replaces the zero Logger with one that drops everything
func orDiscard(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log
}
