package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"codefold/pkg/config"
	"codefold/pkg/core"
)

// fallbackOutput is used when the derived output name is already taken
const fallbackOutput = "codebase.txt"

// CollapseOptions defines all options for the collapse command
type CollapseOptions struct {
	// Roots are the directories to collapse, in order
	Roots []string
	// OutputPath is the archive to (over)write
	OutputPath string
	// Compression frames the archive, empty to infer from OutputPath
	Compression string
	// Strict fails the command when warnings were recorded
	Strict bool
}

// NewCollapseCommand creates the collapse command
func NewCollapseCommand(ctx context.Context, global *GlobalOptions) *cobra.Command {
	opts := &CollapseOptions{}
	cmd := &cobra.Command{
		Use:   "collapse DIR [DIR...] [-o output.txt]",
		Args:  cobra.MinimumNArgs(1),
		Short: "Collapses directory trees into a single text archive",
		Long: `
Collapse walks every given directory and writes its folders and files into one
text archive. Each directory appears under its own name.

Directories that do not exist are skipped with a warning. Files that are not
valid UTF-8 text and do not carry a binary extension are replaced by a comment
line. Use --strict to fail when anything was skipped.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(cmd.Flags(), global.Config, args); err != nil {
				return err
			}
			return opts.Run(ctx, global, osfs.New(), cmd.OutOrStdout())
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// AddFlags registers the collapse flags
func (o *CollapseOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.OutputPath, "out", "o", "", "writes the archive to the given path (default <first dir>.codebase.txt)")
	fs.StringVar(&o.Compression, "compression", "", "frames the archive with none, lz4 or zstd (default inferred from the output extension)")
	fs.BoolVar(&o.Strict, "strict", false, "fail if any directory or file was skipped")
}

// Complete parses the arguments and fills in defaults from the configuration
func (o *CollapseOptions) Complete(flags *pflag.FlagSet, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("expected at least one directory to collapse")
	}
	if cfg == nil {
		cfg = config.Default()
	}

	o.Roots = make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		o.Roots = append(o.Roots, abs)
	}

	if o.OutputPath == "" {
		o.OutputPath = cfg.Collapse.Output
	}
	if o.Compression == "" {
		o.Compression = cfg.Collapse.Compression
	}
	if flags == nil || !flags.Changed("strict") {
		o.Strict = o.Strict || cfg.Collapse.Strict
	}
	return o.validate()
}

func (o *CollapseOptions) validate() error {
	_, err := core.ParseCompression(o.Compression)
	return err
}

// Run collapses the roots into the output archive
func (o *CollapseOptions) Run(_ context.Context, global *GlobalOptions, fs vfs.FileSystem, out io.Writer) error {
	output, err := o.determineOutputPath(fs)
	if err != nil {
		return err
	}
	if output, err = vfs.Abs(fs, output); err != nil {
		return fmt.Errorf("resolve output: %w", err)
	}

	compression := core.CompressionForPath(output)
	if o.Compression != "" {
		if compression, err = core.ParseCompression(o.Compression); err != nil {
			return err
		}
	}

	res, err := core.CollapseToFile(fs, output, o.Roots, core.Options{
		Compression: compression,
		Log:         global.Log,
	})
	if err != nil {
		return fmt.Errorf("an error occurred during collapsing: %w", err)
	}
	if err := reportWarnings(global.Log, res, o.Strict); err != nil {
		return err
	}

	fmt.Fprintf(out, "Codebase collapsed into '%s' successfully.\n", output)
	return nil
}

// determineOutputPath determines the output path for the archive
func (o *CollapseOptions) determineOutputPath(fs vfs.FileSystem) (string, error) {
	// If output is provided as an argument, use it
	if o.OutputPath != "" {
		return o.OutputPath, nil
	}

	// Otherwise, use the first directory name + .codebase.txt
	autoName := filepath.Base(o.Roots[0]) + ".codebase.txt"
	exists, err := vfs.Exists(fs, autoName)
	if err != nil {
		return "", fmt.Errorf("check output existence: %w", err)
	}
	if !exists {
		return autoName, nil
	}

	// Default fallback
	return fallbackOutput, nil
}
