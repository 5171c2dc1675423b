package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// TestParseCompression tests compression names
func TestParseCompression(t *testing.T) {
	tests := []struct {
		name string
		want Compression
		ok   bool
	}{
		{"", CompressionNone, true},
		{"none", CompressionNone, true},
		{"LZ4", CompressionLZ4, true},
		{"zstd", CompressionZstd, true},
		{"zst", CompressionZstd, true},
		{"gzip", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("ParseCompression(%q) error = %v", tt.name, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseCompression(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

// TestCompressionForPath tests extension based detection
func TestCompressionForPath(t *testing.T) {
	tests := map[string]Compression{
		"codebase.txt":         CompressionNone,
		"codebase":             CompressionNone,
		"out/codebase.txt.lz4": CompressionLZ4,
		"codebase.ZST":         CompressionZstd,
		"codebase.zstd":        CompressionZstd,
	}
	for p, want := range tests {
		if got := CompressionForPath(p); got != want {
			t.Errorf("CompressionForPath(%q) = %s, want %s", p, got, want)
		}
	}
}

// TestStreamFraming tests that every frame is detected and unwrapped
func TestStreamFraming(t *testing.T) {
	text := strings.Repeat("### FOLDER: proj\n### FILE: a.txt\nhello\n\n", 100)
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewStreamWriter(&buf, c)
			if err != nil {
				t.Fatalf("Failed to create writer: %v", err)
			}
			if _, err := io.WriteString(w, text); err != nil {
				t.Fatalf("Failed to write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Failed to close writer: %v", err)
			}
			if c != CompressionNone && buf.Len() >= len(text) {
				t.Fatalf("%s frame did not compress: %d >= %d", c, buf.Len(), len(text))
			}

			r, detected, err := NewStreamReader(&buf)
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}
			defer r.Close()
			if detected != c {
				t.Fatalf("Detected %s, want %s", detected, c)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("Failed to read: %v", err)
			}
			if string(got) != text {
				t.Fatalf("Stream content mismatch")
			}
		})
	}
}

// TestStreamReaderShortInput tests inputs shorter than a magic number
func TestStreamReaderShortInput(t *testing.T) {
	for _, in := range []string{"", "ab"} {
		r, c, err := NewStreamReader(strings.NewReader(in))
		if err != nil {
			t.Fatalf("NewStreamReader(%q) failed: %v", in, err)
		}
		if c != CompressionNone {
			t.Fatalf("NewStreamReader(%q) detected %s", in, c)
		}
		got, _ := io.ReadAll(r)
		if string(got) != in {
			t.Fatalf("NewStreamReader(%q) returned %q", in, got)
		}
	}
}

// TestStreamWriterUnknown tests that unknown compressions are rejected
func TestStreamWriterUnknown(t *testing.T) {
	if _, err := NewStreamWriter(io.Discard, Compression(9)); err == nil {
		t.Fatalf("Expected error for unknown compression")
	}
}
