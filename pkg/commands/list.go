package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"

	"codefold/pkg/core"
)

// ListOptions defines all options for the list command
type ListOptions struct {
	// ArchivePath is the archive to read
	ArchivePath string
}

// NewListCommand creates the list command
func NewListCommand(ctx context.Context, global *GlobalOptions) *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list ARCHIVE",
		Args:  cobra.ExactArgs(1),
		Short: "Lists the folders and files of a text archive without writing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ArchivePath = args[0]
			return opts.Run(ctx, global, osfs.New(), cmd.OutOrStdout())
		},
	}
	return cmd
}

// Run decodes the archive and prints one line per entry
func (o *ListOptions) Run(_ context.Context, global *GlobalOptions, fs vfs.FileSystem, out io.Writer) error {
	res, err := core.ListFile(fs, o.ArchivePath, core.Options{Log: global.Log.V(1)})
	if err != nil {
		return fmt.Errorf("list %s: %w", o.ArchivePath, err)
	}
	for _, e := range res.Entries {
		switch {
		case e.Folder:
			fmt.Fprintf(out, "%s/\n", e.RelPath)
		case e.Binary:
			fmt.Fprintf(out, "%s\t%s\tbinary\n", e.RelPath, humanize.IBytes(e.Size))
		default:
			fmt.Fprintf(out, "%s\t%s\n", e.RelPath, humanize.IBytes(e.Size))
		}
	}
	fmt.Fprintf(out, "%d folder(s), %d file(s), %s\n", res.Folders, res.Files, humanize.IBytes(res.Bytes))
	return nil
}
