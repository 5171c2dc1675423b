package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/pflag"

	"codefold/pkg/config"
)

func testGlobal() *GlobalOptions {
	return &GlobalOptions{Config: config.Default(), Log: logr.Discard()}
}

func testFS(t *testing.T, files map[string]string) vfs.FileSystem {
	t.Helper()
	fs := memoryfs.New()
	for p, data := range files {
		if err := fs.MkdirAll(vfs.Dir(fs, p), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", p, err)
		}
		if err := vfs.WriteFile(fs, p, []byte(data), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", p, err)
		}
	}
	return fs
}

func TestCollapseExpandList(t *testing.T) {
	fs := testFS(t, map[string]string{
		"/work/proj/a.txt":     "hello\n",
		"/work/proj/sub/b.txt": "b",
	})
	ctx := context.Background()
	global := testGlobal()

	collapse := &CollapseOptions{Roots: []string{"/work/proj"}, OutputPath: "/work/out.txt.lz4"}
	var out bytes.Buffer
	if err := collapse.Run(ctx, global, fs, &out); err != nil {
		t.Fatalf("Collapse failed: %v", err)
	}
	if !strings.Contains(out.String(), "Codebase collapsed into '/work/out.txt.lz4' successfully.") {
		t.Fatalf("Unexpected output: %q", out.String())
	}

	out.Reset()
	list := &ListOptions{ArchivePath: "/work/out.txt.lz4"}
	if err := list.Run(ctx, global, fs, &out); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := "proj/\nproj/a.txt\t6 B\nproj/sub/\nproj/sub/b.txt\t1 B\n2 folder(s), 2 file(s), 7 B\n"
	if out.String() != want {
		t.Fatalf("Unexpected listing:\n%s\nwant:\n%s", out.String(), want)
	}

	out.Reset()
	expand := &ExpandOptions{ArchivePath: "/work/out.txt.lz4", Destination: "/restored"}
	if err := expand.Run(ctx, global, fs, &out); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	data, err := vfs.ReadFile(fs, "/restored/proj/sub/b.txt")
	if err != nil || string(data) != "b" {
		t.Fatalf("Restored file mismatch: %q %v", data, err)
	}
}

func TestCollapseStrict(t *testing.T) {
	fs := testFS(t, map[string]string{"/work/proj/a.txt": "a"})
	opts := &CollapseOptions{Roots: []string{"/work/proj", "/work/missing"}, OutputPath: "/work/out.txt"}

	var out bytes.Buffer
	if err := opts.Run(context.Background(), testGlobal(), fs, &out); err != nil {
		t.Fatalf("Non-strict collapse failed: %v", err)
	}

	opts.Strict = true
	err := opts.Run(context.Background(), testGlobal(), fs, &out)
	if err == nil || !strings.Contains(err.Error(), "strict mode") {
		t.Fatalf("Expected strict mode error, got %v", err)
	}
}

func TestCollapseOutputPath(t *testing.T) {
	fs := testFS(t, map[string]string{"/work/proj/a.txt": "a"})
	opts := &CollapseOptions{Roots: []string{"/work/proj"}}

	got, err := opts.determineOutputPath(fs)
	if err != nil || got != "proj.codebase.txt" {
		t.Fatalf("determineOutputPath() = %q, %v", got, err)
	}

	if err := vfs.WriteFile(fs, "/proj.codebase.txt", []byte("taken"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	got, err = opts.determineOutputPath(fs)
	if err != nil || got != fallbackOutput {
		t.Fatalf("determineOutputPath() = %q, %v, want %q", got, err, fallbackOutput)
	}

	opts.OutputPath = "/x/y.txt"
	if got, _ := opts.determineOutputPath(fs); got != "/x/y.txt" {
		t.Fatalf("Explicit output path ignored: %q", got)
	}
}

func TestCollapseComplete(t *testing.T) {
	cfg := config.Default()
	cfg.Collapse.Output = "from-config.txt"
	cfg.Collapse.Compression = "zstd"
	cfg.Collapse.Strict = true

	opts := &CollapseOptions{}
	if err := opts.Complete(nil, cfg, []string{"/a", "/b/"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(opts.Roots) != 2 || opts.Roots[1] != "/b" {
		t.Errorf("Unexpected roots %v", opts.Roots)
	}
	if opts.OutputPath != "from-config.txt" || opts.Compression != "zstd" || !opts.Strict {
		t.Errorf("Config defaults not applied: %+v", opts)
	}

	opts = &CollapseOptions{Compression: "brotli"}
	if err := opts.Complete(nil, cfg, []string{"/a"}); err == nil {
		t.Fatalf("Expected error for unknown compression")
	}
	if err := (&CollapseOptions{}).Complete(nil, cfg, nil); err == nil {
		t.Fatalf("Expected error without directories")
	}
}

func TestExpandComplete(t *testing.T) {
	opts := &ExpandOptions{}
	if err := opts.Complete(nil, nil, []string{"archive.txt", "/dest"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if opts.Destination != "/dest" {
		t.Errorf("Destination = %q", opts.Destination)
	}

	opts = &ExpandOptions{Destination: "/one"}
	if err := opts.Complete(nil, nil, []string{"archive.txt", "/two"}); err == nil {
		t.Fatalf("Expected error for conflicting destinations")
	}

	cfg := config.Default()
	cfg.Expand.Destination = "/configured"
	opts = &ExpandOptions{}
	if err := opts.Complete(nil, cfg, []string{"archive.txt"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if opts.Destination != "/configured" {
		t.Errorf("Destination = %q, want /configured", opts.Destination)
	}
}

func TestExpandMalformed(t *testing.T) {
	fs := testFS(t, map[string]string{
		"/in/bad.txt": "### FILE: a.txt\nno folder\n",
	})
	opts := &ExpandOptions{ArchivePath: "/in/bad.txt", Destination: "/out"}
	var out bytes.Buffer
	err := opts.Run(context.Background(), testGlobal(), fs, &out)
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("Expected error on line 1, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("Success message printed on failure: %q", out.String())
	}
}

func TestRootCommandHelp(t *testing.T) {
	cmd := NewRootCommand(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, sub := range []string{"collapse", "expand", "list"} {
		if !strings.Contains(out.String(), sub) {
			t.Errorf("Help does not mention %s", sub)
		}
	}
}

func TestGlobalComplete(t *testing.T) {
	fs := testFS(t, map[string]string{
		"/etc/codefold.yaml": "log:\n  verbosity: 2\n  quiet: true\nexpand:\n  strict: true\n",
	})
	opts := &GlobalOptions{}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(flags)
	if err := flags.Parse([]string{"--config", "/etc/codefold.yaml", "--quiet=false"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	if err := opts.Complete(flags, fs); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !opts.Config.Expand.Strict {
		t.Errorf("Config file was not loaded")
	}
	if opts.LogConfig.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2 from the config file", opts.LogConfig.Verbosity)
	}
	if opts.LogConfig.Quiet {
		t.Errorf("Command line flag did not override the config file")
	}

	opts = &GlobalOptions{ConfigPath: "/etc/missing.yaml"}
	if err := opts.Complete(pflag.NewFlagSet("test", pflag.ContinueOnError), fs); err == nil {
		t.Fatalf("Expected error for a missing config file")
	}
}
