package core

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/mandelsoft/vfs/pkg/projectionfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"codefold/pkg/progress"
)

// Decoder rebuilds a tree from an archive stream into a Sink
type Decoder struct {
	sink Sink
	log  logr.Logger
}

// NewDecoder creates a decoder writing to sink
func NewDecoder(sink Sink, log logr.Logger) *Decoder {
	return &Decoder{sink: sink, log: orDiscard(log)}
}

// Expand scans r once and materializes folders and files as their markers are
// recognized. The first fatal problem aborts the scan; anything written
// before it stays in the sink.
//
// A file label is resolved against the current folder. When the label already
// starts with the folder path, as in archives from older tools, that prefix is
// dropped: "### FOLDER: a" followed by "### FILE: a/b.txt" writes a/b.txt,
// not a/a/b.txt.
func (d *Decoder) Expand(r io.Reader) (*Result, error) {
	br := bufio.NewReader(r)
	st := newDecodeState(d.sink, d.log)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if serr := st.step(line); serr != nil {
				return st.res, serr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return st.res, fmt.Errorf("read archive: %w", err)
		}
	}
	if err := st.finish(); err != nil {
		return st.res, err
	}
	return st.res, nil
}

// ExpandFile expands the archive at input below dest. The destination is
// created if needed and all writes are confined to it.
func ExpandFile(fs vfs.FileSystem, input, dest string, opts Options) (*Result, error) {
	if dest == "" {
		dest = "."
	}
	dest, err := vfs.Abs(fs, dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}
	if err := fs.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", dest, err)
	}
	root, err := projectionfs.New(fs, dest)
	if err != nil {
		return nil, fmt.Errorf("open destination %s: %w", dest, err)
	}
	return decodeFile(fs, input, &FileSystemSink{FS: root, Root: "/"}, opts)
}

// ListFile validates the archive at input and returns its entries without
// writing anything
func ListFile(fs vfs.FileSystem, input string, opts Options) (*Result, error) {
	return decodeFile(fs, input, ListSink{}, opts)
}

func decodeFile(fs vfs.FileSystem, input string, sink Sink, opts Options) (*Result, error) {
	f, err := fs.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var totalSize uint64
	if info, err := f.Stat(); err == nil {
		totalSize = uint64(info.Size())
	}
	progress.Init(opts.Log, totalSize)
	defer progress.Stop()

	r, c, err := NewStreamReader(&progress.Reader{R: f})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if c != CompressionNone {
		orDiscard(opts.Log).V(1).Info("Detected compressed archive", "compression", c.String())
	}

	return NewDecoder(sink, opts.Log).Expand(r)
}
