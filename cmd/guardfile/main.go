// Command guardfile exercises guarded file handles from the shell: it can
// probe a path for the expected read/write/seek/resize behaviour, report
// metadata and checksums, resize files, and take or restore compressed
// snapshots.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	noLock   bool
	jsonOut  bool
	logLevel string
	logger   hclog.Logger
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "guardfile",
		Short:         "Inspect and exercise files through guarded handles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level := hclog.LevelFromString(opts.logLevel)
			if level == hclog.NoLevel {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			opts.logger = hclog.New(&hclog.LoggerOptions{
				Name:   "guardfile",
				Level:  level,
				Output: stderr,
			})
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().BoolVar(&opts.noLock, "no-lock", false,
		"Bypass the process-wide disk lock")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false,
		"Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newProbeCommand(opts),
		newStatCommand(opts),
		newChecksumCommand(opts),
		newTruncateCommand(opts),
		newSnapshotCommand(opts),
		newRestoreCommand(opts),
	)
	return rootCmd
}
