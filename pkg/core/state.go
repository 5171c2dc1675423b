package core

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-logr/logr"

	"codefold/pkg/progress"
)

// ErrEmptyLabel is returned for a file marker without a name
var ErrEmptyLabel = errors.New("file marker without a name")

// decodeState is the decoder's context while it scans the archive line by line
type decodeState struct {
	sink Sink
	log  logr.Logger
	res  *Result
	seen map[string]struct{} // Folders already created

	line     int    // Number of the line being processed
	folder   string // Current folder label, valid once inFolder is set
	inFolder bool
	file     string // Current file path relative to the root, empty when none
	fileLine int    // Line of the current file marker
	binary   bool   // Current file is classified binary
	payload  bool   // Collecting base64 lines for the current file
	buf      bytes.Buffer
}

func newDecodeState(sink Sink, log logr.Logger) *decodeState {
	return &decodeState{
		sink: sink,
		log:  log,
		res:  &Result{},
		seen: map[string]struct{}{},
	}
}

// step processes one line including its terminator
func (s *decodeState) step(line string) error {
	s.line++

	if s.payload {
		if !isDelimiter(line) {
			s.buf.WriteString(strings.TrimSpace(line))
			return nil
		}
		// The marker ends the payload and is handled below
		if err := s.flushBinary(); err != nil {
			return err
		}
	}

	marker, label := ParseMarker(line)
	switch marker {
	case MarkerFolder:
		if err := s.flushText(); err != nil {
			return err
		}
		return s.openFolder(label)
	case MarkerFile:
		if err := s.flushText(); err != nil {
			return err
		}
		return s.openFile(label)
	case MarkerBinary:
		if s.binary && s.file != "" {
			s.payload = true
			s.buf.Reset()
			return nil
		}
	}

	if s.file != "" && !s.binary {
		s.buf.WriteString(line)
	}
	return nil
}

// finish flushes whatever is pending at the end of the stream
func (s *decodeState) finish() error {
	if s.payload {
		return s.flushBinary()
	}
	return s.flushText()
}

func (s *decodeState) fail(p string, err error) error {
	return &StreamError{Line: s.line, Path: p, Err: err}
}

func (s *decodeState) openFolder(label string) error {
	dir, err := cleanLabel(label)
	if err != nil {
		return s.fail(label, err)
	}
	if err := s.sink.MakeDir(dir); err != nil {
		return s.fail(dir, err)
	}
	if _, ok := s.seen[dir]; !ok {
		s.seen[dir] = struct{}{}
		s.res.Folders++
		s.res.Entries = append(s.res.Entries, Entry{RelPath: dir, Folder: true})
		s.log.Info("Created folder", "folder", dir)
	}
	s.folder = dir
	s.inFolder = true
	return nil
}

func (s *decodeState) openFile(label string) error {
	if !s.inFolder {
		return s.fail(label, ErrFileBeforeFolder)
	}
	name, err := cleanLabel(label)
	if err != nil {
		return s.fail(label, err)
	}
	// Archives written by older tools repeat the folder path in the file label
	if s.folder != "." && strings.HasPrefix(name, s.folder+"/") {
		name = strings.TrimPrefix(name, s.folder+"/")
	}
	if name == "." {
		return s.fail(label, ErrEmptyLabel)
	}

	s.file = path.Join(s.folder, name)
	s.fileLine = s.line
	s.binary = IsBinaryName(name)
	s.log.V(1).Info("Processing file", "file", s.file, "binary", s.binary)
	return nil
}

func (s *decodeState) clearFile() {
	s.file = ""
	s.binary = false
	s.payload = false
	s.buf.Reset()
}

// flushText writes the pending text file. The encoder terminates every content
// block with one newline, which is not part of the file.
func (s *decodeState) flushText() error {
	defer s.clearFile()
	if s.file == "" || s.binary || s.buf.Len() == 0 {
		return nil
	}
	data := bytes.TrimSuffix(s.buf.Bytes(), []byte("\n"))
	return s.writeFile(data, false)
}

// flushBinary decodes the collected payload and writes the binary file
func (s *decodeState) flushBinary() error {
	defer s.clearFile()
	data, err := base64.StdEncoding.DecodeString(s.buf.String())
	if err != nil {
		return &StreamError{Line: s.fileLine, Path: s.file, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	return s.writeFile(data, true)
}

func (s *decodeState) writeFile(data []byte, binary bool) error {
	if err := s.sink.WriteFile(s.file, data); err != nil {
		return &StreamError{Line: s.fileLine, Path: s.file, Err: err}
	}
	s.res.Files++
	if binary {
		s.res.Binaries++
	}
	s.res.Bytes += uint64(len(data))
	s.res.Entries = append(s.res.Entries, Entry{RelPath: s.file, Binary: binary, Size: uint64(len(data))})
	progress.AddFile()
	if binary {
		s.log.Info("Created binary file", "file", s.file)
	} else {
		s.log.Info("Created file", "file", s.file)
	}
	return nil
}

// cleanLabel normalizes a marker label to a slash separated relative path and
// rejects labels that would leave the destination root
func cleanLabel(label string) (string, error) {
	p := strings.ReplaceAll(label, `\`, "/")
	if path.IsAbs(p) || hasDriveLetter(p) {
		return "", ErrUnsafePath
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", ErrUnsafePath
	}
	return p, nil
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
