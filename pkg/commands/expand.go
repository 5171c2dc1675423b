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

// ExpandOptions defines all options for the expand command
type ExpandOptions struct {
	// ArchivePath is the archive to read
	ArchivePath string
	// Destination is the folder the archive is expanded into
	Destination string
	// Strict fails the command when warnings were recorded
	Strict bool
}

// NewExpandCommand creates the expand command
func NewExpandCommand(ctx context.Context, global *GlobalOptions) *cobra.Command {
	opts := &ExpandOptions{}
	cmd := &cobra.Command{
		Use:   "expand ARCHIVE [DESTINATION] [-C destination]",
		Args:  cobra.RangeArgs(1, 2),
		Short: "Expands a text archive into folders and files",
		Long: `
Expand reads an archive written by collapse and recreates its folders and files
below the destination, which defaults to the current directory.

Existing folders are reused and existing files are replaced. Archives framed
with lz4 or zstd are detected automatically. Labels that point outside the
destination abort the run.
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

// AddFlags registers the expand flags
func (o *ExpandOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Destination, "directory", "C", "", "expand into the given directory (default .)")
	fs.BoolVar(&o.Strict, "strict", false, "fail if any warning was recorded")
}

// Complete parses the arguments and fills in defaults from the configuration
func (o *ExpandOptions) Complete(flags *pflag.FlagSet, cfg *config.Config, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("expected the archive path and an optional destination")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	o.ArchivePath = args[0]

	if len(args) == 2 {
		if o.Destination != "" && o.Destination != args[1] {
			return fmt.Errorf("destination given twice: %q and %q", o.Destination, args[1])
		}
		o.Destination = args[1]
	}
	if o.Destination == "" {
		o.Destination = cfg.Expand.Destination
	}
	dest, err := filepath.Abs(o.Destination)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", o.Destination, err)
	}
	o.Destination = dest

	if flags == nil || !flags.Changed("strict") {
		o.Strict = o.Strict || cfg.Expand.Strict
	}
	return nil
}

// Run expands the archive
func (o *ExpandOptions) Run(_ context.Context, global *GlobalOptions, fs vfs.FileSystem, out io.Writer) error {
	res, err := core.ExpandFile(fs, o.ArchivePath, o.Destination, core.Options{Log: global.Log})
	if err != nil {
		return fmt.Errorf("an error occurred during expansion: %w", err)
	}
	if err := reportWarnings(global.Log, res, o.Strict); err != nil {
		return err
	}
	fmt.Fprintln(out, "Codebase expansion complete.")
	return nil
}
