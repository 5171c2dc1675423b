package core

import (
	"fmt"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Sink receives the folders and files reconstructed by the decoder.
// Paths are slash separated and relative to the destination root.
type Sink interface {
	// MakeDir creates dir and any missing ancestors; existing folders are left alone
	MakeDir(dir string) error
	// WriteFile creates parent folders and replaces any existing file at name
	WriteFile(name string, data []byte) error
}

// FileSystemSink materializes the archive below Root on FS
type FileSystemSink struct {
	FS   vfs.FileSystem
	Root string
}

func (s *FileSystemSink) path(rel string) string {
	return vfs.Join(s.FS, s.Root, rel)
}

// MakeDir implements Sink
func (s *FileSystemSink) MakeDir(dir string) error {
	if err := s.FS.MkdirAll(s.path(dir), 0755); err != nil {
		return fmt.Errorf("create folder %s: %w", dir, err)
	}
	return nil
}

// WriteFile implements Sink
func (s *FileSystemSink) WriteFile(name string, data []byte) error {
	p := s.path(name)
	if err := s.FS.MkdirAll(vfs.Dir(s.FS, p), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", name, err)
	}
	if err := vfs.WriteFile(s.FS, p, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ListSink discards everything; the decoder still validates the stream and
// records the entries in its Result
type ListSink struct{}

// MakeDir implements Sink
func (ListSink) MakeDir(string) error { return nil }

// WriteFile implements Sink
func (ListSink) WriteFile(string, []byte) error { return nil }
