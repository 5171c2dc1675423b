package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects an optional frame around the whole text stream.
// The archive format inside the frame is unchanged.
type Compression uint8

const (
	CompressionNone Compression = 0 // Plain text
	CompressionLZ4  Compression = 1 // LZ4 frame
	CompressionZstd Compression = 2 // Zstandard frame
)

// Frame magic numbers as they appear on disk (little endian)
var (
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// String returns the human-readable name of a compression
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression from its string representation.
// The empty string means no compression.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// CompressionForPath infers a compression from an output file extension
func CompressionForPath(p string) Compression {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".lz4":
		return CompressionLZ4
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewStreamWriter wraps w in the requested frame. Closing the returned writer
// flushes the frame but does not close w.
func NewStreamWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// NewStreamReader detects a frame from its magic number and returns a reader
// over the plain text stream
func NewStreamReader(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, CompressionNone, fmt.Errorf("peek stream header: %w", err)
	}

	switch {
	case bytes.Equal(head, lz4Magic):
		return io.NopCloser(lz4.NewReader(br)), CompressionLZ4, nil
	case bytes.Equal(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, CompressionZstd, fmt.Errorf("zstd reader: %w", err)
		}
		return zr.IOReadCloser(), CompressionZstd, nil
	default:
		return io.NopCloser(br), CompressionNone, nil
	}
}
