// Package commands implements the codefold command line.
package commands

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"codefold/pkg/config"
	"codefold/pkg/core"
	"codefold/pkg/logger"
)

// GlobalOptions holds the flags shared by every command and the state
// derived from them before a command runs
type GlobalOptions struct {
	// ConfigPath is the path to the configuration file
	ConfigPath string
	// LogConfig configures the logger
	LogConfig logger.Config

	Config *config.Config
	Log    logr.Logger
}

// AddFlags registers the global flags
func (o *GlobalOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", fmt.Sprintf("path to the configuration file (defaults to $%s)", config.EnvVar))
	o.LogConfig.AddFlags(fs)
}

// Complete loads the configuration file from fs and builds the logger. Flags
// set on the command line win over values from the file.
func (o *GlobalOptions) Complete(flags *pflag.FlagSet, fs vfs.FileSystem) error {
	cfg, err := config.Load(fs, config.Path(o.ConfigPath))
	if err != nil {
		return err
	}
	o.Config = cfg

	if !flags.Changed("verbosity") {
		o.LogConfig.Verbosity = cfg.Log.Verbosity
	}
	if !flags.Changed("json") {
		o.LogConfig.JSON = cfg.Log.JSON
	}
	if !flags.Changed("quiet") {
		o.LogConfig.Quiet = cfg.Log.Quiet
	}
	if !flags.Changed("timestamps") {
		o.LogConfig.Timestamps = cfg.Log.Timestamps
	}

	log, err := logger.New(o.LogConfig)
	if err != nil {
		return err
	}
	o.Log = log
	return nil
}

// NewRootCommand creates the codefold command with all subcommands
func NewRootCommand(ctx context.Context) *cobra.Command {
	opts := &GlobalOptions{}
	cmd := &cobra.Command{
		Use:   "codefold",
		Short: "Collapse directory trees into one text file and expand them again",
		Long: `
codefold serializes directory trees into a single human readable text file and
reconstructs the trees from it.

Folders and files are announced by marker lines:

  ### FOLDER: project/src
  ### FILE: main.go

Text files follow their marker verbatim. Files with the extensions
.png .jpg .jpeg .gif .bmp .ico .pdf .zip .exe are stored as base64 in lines of
76 characters after a "(binary content of the NAME)" line.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.Complete(cmd.Flags(), osfs.New())
		},
	}
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewCollapseCommand(ctx, opts))
	cmd.AddCommand(NewExpandCommand(ctx, opts))
	cmd.AddCommand(NewListCommand(ctx, opts))
	return cmd
}

// reportWarnings logs every recorded warning and, in strict mode, turns them
// into the command's error
func reportWarnings(log logr.Logger, res *core.Result, strict bool) error {
	err := res.Err()
	if err == nil {
		return nil
	}
	if strict {
		return fmt.Errorf("%d warning(s) in strict mode: %w", len(res.Warnings), err)
	}
	log.Info("Completed with warnings", "count", len(res.Warnings))
	return nil
}
