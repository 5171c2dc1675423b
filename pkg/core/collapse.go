package core

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-logr/logr"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"codefold/pkg/progress"
)

// Options configures the file level collapse and expand operations
type Options struct {
	Compression Compression // Frame for the output stream, ignored when expanding
	Log         logr.Logger
}

// Encoder writes directory trees into an archive stream
type Encoder struct {
	fs      vfs.FileSystem
	log     logr.Logger
	exclude map[string]struct{}
}

// NewEncoder creates an encoder reading from fs
func NewEncoder(fs vfs.FileSystem, log logr.Logger) *Encoder {
	return &Encoder{fs: fs, log: orDiscard(log), exclude: map[string]struct{}{}}
}

// Exclude keeps the given paths out of the archive, typically the output file
func (e *Encoder) Exclude(paths ...string) {
	for _, p := range paths {
		e.exclude[vfs.Clean(e.fs, p)] = struct{}{}
	}
}

// CollapseToFile writes the archive of roots to output, replacing any existing file
func CollapseToFile(fs vfs.FileSystem, output string, roots []string, opts Options) (*Result, error) {
	// Clean up existing output file
	if ok, err := vfs.Exists(fs, output); err != nil {
		return nil, fmt.Errorf("check output existence: %w", err)
	} else if ok {
		if err := fs.Remove(output); err != nil {
			return nil, fmt.Errorf("remove existing output: %w", err)
		}
	}

	if err := fs.MkdirAll(vfs.Dir(fs, output), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f, err := fs.Create(output)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	progress.Init(opts.Log, calculateTotalSize(fs, roots))
	defer progress.Stop()

	sw, err := NewStreamWriter(f, opts.Compression)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(sw)

	enc := NewEncoder(fs, opts.Log)
	enc.Exclude(output)
	res, err := enc.Collapse(bw, roots)
	if err != nil {
		return res, err
	}

	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("flush output: %w", err)
	}
	if err := sw.Close(); err != nil {
		return res, fmt.Errorf("close %s stream: %w", opts.Compression, err)
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("close output: %w", err)
	}
	return res, nil
}

// calculateTotalSize sums the sizes of all regular files below roots
func calculateTotalSize(fs vfs.FileSystem, roots []string) uint64 {
	var totalSize uint64
	for _, root := range roots {
		_ = vfs.Walk(fs, root, func(_ string, info os.FileInfo, err error) error {
			if err != nil || info == nil {
				return nil
			}
			if info.Mode().IsRegular() {
				totalSize += uint64(info.Size())
			}
			return nil
		})
	}
	return totalSize
}

// collapser holds the state of a single Collapse call
type collapser struct {
	*Encoder
	w   io.Writer
	res *Result
}

// Collapse writes every folder and regular file below roots to w. Problems
// with individual roots or files are recorded as warnings; only write
// failures abort the run.
func (e *Encoder) Collapse(w io.Writer, roots []string) (*Result, error) {
	c := &collapser{Encoder: e, w: w, res: &Result{}}
	seen := map[string]struct{}{}

	for _, root := range roots {
		root = vfs.Clean(e.fs, root)
		if _, dup := seen[root]; dup {
			c.skipRoot(root, errors.New("directory already selected"))
			continue
		}
		seen[root] = struct{}{}

		info, err := e.fs.Stat(root)
		if err != nil {
			c.skipRoot(root, err)
			continue
		}
		if !info.IsDir() {
			c.skipRoot(root, errors.New("not a valid directory"))
			continue
		}
		// The root's own name is the top level folder label
		label := vfs.Base(e.fs, root)
		if label == "" || label == "." || label == ".." || vfs.IsRoot(e.fs, root) {
			c.skipRoot(root, errors.New("cannot derive a folder name"))
			continue
		}
		if err := checkEntryName(label); err != nil {
			c.skipRoot(root, err)
			continue
		}

		if err := c.folder(root, label); err != nil {
			return c.res, err
		}
	}
	return c.res, nil
}

func (c *collapser) skipRoot(root string, err error) {
	c.log.Error(err, "Skipping source directory", "path", root)
	c.res.warn(root, err)
}

func (c *collapser) write(s string) error {
	if _, err := io.WriteString(c.w, s); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// folder emits the folder marker, the files directly inside dir, then recurses
// into subdirectories. Both are visited in name order.
func (c *collapser) folder(dir, label string) error {
	if err := c.write(FolderLine(label)); err != nil {
		return err
	}
	c.log.Info("Writing folder", "folder", label)
	c.res.Folders++
	c.res.Entries = append(c.res.Entries, Entry{RelPath: label, Folder: true})

	infos, err := vfs.ReadDir(c.fs, dir)
	if err != nil {
		c.log.Error(err, "Unable to list folder", "folder", label)
		c.res.warn(label, err)
		return nil
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var subdirs []os.FileInfo
	for _, info := range infos {
		p := vfs.Join(c.fs, dir, info.Name())
		if _, skip := c.exclude[p]; skip {
			continue
		}
		if err := checkEntryName(info.Name()); err != nil {
			rel := label + "/" + info.Name()
			c.log.Info("Skipping entry whose name cannot be archived", "file", rel, "reason", err.Error())
			c.res.warn(rel, err)
			continue
		}
		switch {
		case info.IsDir():
			subdirs = append(subdirs, info)
		case info.Mode().IsRegular():
			if err := c.file(p, label, info.Name()); err != nil {
				return err
			}
		default:
			rel := label + "/" + info.Name()
			c.log.Info("Skipping non-regular file", "file", rel, "mode", info.Mode().String())
			c.res.warn(rel, fmt.Errorf("not a regular file (%s)", info.Mode().Type()))
		}
	}

	for _, sub := range subdirs {
		if err := c.folder(vfs.Join(c.fs, dir, sub.Name()), label+"/"+sub.Name()); err != nil {
			return err
		}
	}
	return nil
}

// file emits the file marker, the content block and the separator line
func (c *collapser) file(p, folderLabel, name string) error {
	rel := folderLabel + "/" + name
	if err := c.write(FileLine(name)); err != nil {
		return err
	}
	c.log.Info("Writing file", "file", rel)

	binary := IsBinaryName(name)
	data, readErr := vfs.ReadFile(c.fs, p)
	if readErr == nil {
		progress.AddBytes(uint64(len(data)))
	}
	progress.AddFile()

	var err error
	archived := readErr == nil
	switch {
	case binary && readErr != nil:
		c.log.Error(readErr, "Error encoding binary file", "file", rel)
		c.res.warn(rel, readErr)
		err = c.write(binErrorComment + oneLine(readErr) + "\n")
	case binary:
		err = c.writeBinary(name, data)
		c.res.Binaries++
	case readErr != nil:
		c.log.Error(readErr, "Error reading file", "file", rel)
		c.res.warn(rel, readErr)
		err = c.write(readErrorComment + oneLine(readErr) + "\n")
	case !utf8.Valid(data):
		c.log.Info("Skipping non-UTF-8 file", "file", rel)
		c.res.warn(rel, errors.New("content is not valid UTF-8"))
		err = c.write(nonUTF8Comment + "\n")
		archived = false
	default:
		if line, ok := firstDelimiterLine(data); ok {
			c.log.Info("File contains a line that reads as a marker and will not expand identically",
				"file", rel, "line", line)
			c.res.warn(rel, fmt.Errorf("line %d reads as an archive marker", line))
		}
		_, err = c.w.Write(data)
		if err != nil {
			err = fmt.Errorf("write archive: %w", err)
		}
	}
	if err != nil {
		return err
	}

	if archived {
		c.res.Files++
		c.res.Bytes += uint64(len(data))
		c.res.Entries = append(c.res.Entries, Entry{RelPath: rel, Binary: binary, Size: uint64(len(data))})
	}
	// Separator
	return c.write("\n")
}

// writeBinary writes the binary marker and the base64 payload in lines of LineWidth
func (c *collapser) writeBinary(name string, data []byte) error {
	if err := c.write(BinaryLine(name)); err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(encoded); i += LineWidth {
		end := i + LineWidth
		if end > len(encoded) {
			end = len(encoded)
		}
		if err := c.write(encoded[i:end] + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// checkEntryName rejects names that a marker line cannot carry unchanged:
// line breaks end the marker early, surrounding whitespace is trimmed by the
// parser and a backslash is read back as a separator.
func checkEntryName(name string) error {
	if strings.ContainsAny(name, "\r\n") {
		return errors.New("name contains a line break")
	}
	if strings.ContainsRune(name, '\\') {
		return errors.New("name contains a backslash")
	}
	if strings.TrimSpace(name) != name {
		return errors.New("name has leading or trailing whitespace")
	}
	return nil
}

// firstDelimiterLine returns the 1-based number of the first line of data that
// would be read back as a folder or file marker
func firstDelimiterLine(data []byte) (int, bool) {
	s := string(data)
	if !strings.Contains(s, FolderDelim) && !strings.Contains(s, FileDelim) {
		return 0, false
	}
	for i, line := range strings.Split(s, "\n") {
		if isDelimiter(line) {
			return i + 1, true
		}
	}
	return 0, false
}

func oneLine(err error) string {
	return strings.ReplaceAll(strings.ReplaceAll(err.Error(), "\r", " "), "\n", " ")
}
